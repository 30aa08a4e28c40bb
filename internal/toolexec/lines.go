package toolexec

import (
	"bufio"
	"bytes"
	"strings"
	"sync"
)

// MaxLineLength bounds a single reported output line. Longer lines are cut
// and the remainder up to the next line break is dropped.
const MaxLineLength = 64 * 1024

const truncatedSuffix = " [truncated]"

// splitOutputLines returns a bufio.SplitFunc that breaks on '\n' or '\r', so
// carriage-return progress bars become separate lines, and never fails on an
// overlong line.
func splitOutputLines(limit int) bufio.SplitFunc {
	discarding := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		i := bytes.IndexAny(data, "\r\n")
		if discarding {
			if i >= 0 {
				discarding = false
				return i + 1, nil, nil
			}
			return len(data), nil, nil
		}
		if i >= 0 && i <= limit {
			return i + 1, data[:i], nil
		}
		if len(data) > limit {
			discarding = true
			token := append(append([]byte(nil), data[:limit]...), truncatedSuffix...)
			return limit, token, nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

// outputTail keeps the last few non-empty output lines of a tool.
type outputTail struct {
	mu    sync.Mutex
	size  int
	lines []string
}

func newOutputTail(size int) *outputTail {
	return &outputTail{size: size}
}

func (t *outputTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.size {
		t.lines = t.lines[len(t.lines)-t.size:]
	}
}

func (t *outputTail) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}
