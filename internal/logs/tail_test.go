package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"kiritan/internal/logs"
)

const sampleLog = `2026-01-02 10:00:00 INFO Run aaaaaaaa · split – stage started
    - event_type: stage_start
2026-01-02 10:00:01 INFO Run bbbbbbbb · split – stage started
    - event_type: stage_start
{"ts":"2026-01-02T10:00:02Z","level":"info","msg":"stage completed","run_id":"aaaaaaaa-1111"}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiritan.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	lines, offset, err := logs.Last(path, 2, nil)
	if err != nil {
		t.Fatalf("last returned error: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("unexpected offset %d", offset)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5, nil)
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

func TestRunFilterKeepsContinuationLines(t *testing.T) {
	path := writeLog(t, sampleLog)

	lines, _, err := logs.Last(path, 10, logs.RunFilter("aaaaaaaa-1111"))
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected header, attribute and json line, got %#v", lines)
	}
	if lines[1] != "    - event_type: stage_start" {
		t.Fatalf("expected continuation line to follow its header, got %q", lines[1])
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	_, offset, err := logs.Last(path, 1, nil)
	if err != nil {
		t.Fatalf("last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 20*time.Millisecond, nil, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			cancel()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected follow lines: %#v", got)
	}
}
