package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Filter reports whether a record header line should be shown.
type Filter func(line string) bool

// RunFilter keeps records tagged with runID, which may be the 8 character
// prefix printed in console headers. An empty id keeps everything.
func RunFilter(runID string) Filter {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return func(line string) bool {
		return strings.Contains(line, `"run_id":"`+runID) || strings.Contains(line, "Run "+short)
	}
}

// selector applies a Filter across multi-line console records.
type selector struct {
	keep    Filter
	current bool
}

func (s *selector) accept(line string) bool {
	if s.keep == nil {
		return true
	}
	if isContinuation(line) {
		return s.current
	}
	s.current = s.keep(line)
	return s.current
}

func isContinuation(line string) bool {
	return line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// Last returns up to limit matching lines from the end of path together with
// the file size, which is the offset to continue from. A missing file yields
// no lines and offset 0.
func Last(path string, limit int, keep Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	sel := &selector{keep: keep}
	ring := make([]string, limit)
	count, next := 0, 0
	offset, err := scanLines(file, func(line string) {
		if !sel.accept(line) {
			return
		}
		ring[next] = line
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, 0, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := 0; i < count; i++ {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, offset, nil
}

// Follow polls path from offset and emits matching lines until ctx is done.
// A truncated file is read again from the start.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, keep Filter, emit func(string)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	sel := &selector{keep: keep}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, func(line string) {
			if sel.accept(line) {
				emit(line)
			}
		})
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, fn func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scanLines(file, fn)
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scanLines feeds complete lines to fn and returns the number of bytes
// consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		fn(strings.TrimRight(line, "\r\n"))
	}
}
