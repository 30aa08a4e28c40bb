package datadir

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"kiritan/internal/fileutil"
)

// entry is one line of a keyed file.
type entry struct {
	key  string
	line string
}

// table is the content of a keyed file sorted by key in byte order (LC_ALL=C).
type table []entry

func readTable(path string) (table, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	t, err := parseTable(file)
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", path, err)
	}
	return t, true, nil
}

func parseTable(r io.Reader) (table, error) {
	var t table
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		key := firstField(line)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		t = append(t, entry{key: key, line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(t, func(i, j int) bool { return t[i].key < t[j].key })
	return t, nil
}

func (t table) keys() map[string]struct{} {
	set := make(map[string]struct{}, len(t))
	for _, e := range t {
		set[e.key] = struct{}{}
	}
	return set
}

func (t table) filter(keep func(entry) bool) table {
	out := make(table, 0, len(t))
	for _, e := range t {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (t table) write(path string) error {
	return fileutil.WriteFileAtomic(path, func(w io.Writer) error {
		for _, e := range t {
			if _, err := io.WriteString(w, e.line+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

func firstField(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// field returns the 0-based n-th whitespace separated field of line.
func field(line string, n int) string {
	fields := strings.Fields(line)
	if n >= len(fields) {
		return ""
	}
	return fields[n]
}

// ReadKeys returns the first field of every non-empty line in path, in file order.
func ReadKeys(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var keys []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if key := firstField(scanner.Text()); key != "" {
			keys = append(keys, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return keys, nil
}
