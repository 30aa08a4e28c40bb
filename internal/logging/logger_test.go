package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kiritan/internal/config"
	"kiritan/internal/logging"
	"kiritan/internal/services"
)

func TestConsoleLoggerIncludesSourceAndFunction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", AddSource: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("stage 1: split")

	out := buf.String()
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "stage 1: split") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("expected file and line in %q", out)
	}
	if !strings.Contains(out, "logging_test.TestConsoleLoggerIncludesSourceAndFunction") {
		t.Fatalf("expected calling function in %q", out)
	}
}

func TestConsoleLoggerOmitsSourceWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information, got %q", buf.String())
	}
}

func TestConsoleLoggerRendersContextSubject(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "0123456789abcdef")
	ctx = services.WithStage(ctx, "segments")
	ctx = services.WithPartition(ctx, "eval1")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "prep")).
		Info("renamed temp outputs", logging.Int("files", 3))

	out := buf.String()
	for _, fragment := range []string{"[prep]", "Run 01234567 · segments · eval1", "– renamed temp outputs", "    - files: 3"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}
	if strings.Contains(out, "run_id:") {
		t.Fatalf("expected run id folded into subject, got %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected filtering result %q", buf.String())
	}
}

func TestJSONLoggerShape(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", AddSource: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Error("stage failed", logging.Error(errors.New("exit status 1")))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json: %v (%q)", err, buf.String())
	}
	if record["level"] != "error" || record["msg"] != "stage failed" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
	src, ok := record["source"].(map[string]any)
	if !ok {
		t.Fatalf("expected source group, got %v", record["source"])
	}
	if file, _ := src["file"].(string); !strings.HasPrefix(file, "logger_test.go:") {
		t.Fatalf("unexpected source file %v", src["file"])
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	var console bytes.Buffer
	logger, closeLog, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("written to file")
	if err := closeLog(); err != nil {
		t.Fatalf("close log file: %v", err)
	}
	if err := closeLog(); err == nil {
		t.Fatal("expected second close to report the file already closed")
	}
	if !strings.Contains(console.String(), "written to file") {
		t.Fatalf("expected message on console, got %q", console.String())
	}

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "written to file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestFormatSubject(t *testing.T) {
	if got := logging.FormatSubject("", "", ""); got != "" {
		t.Fatalf("expected empty subject, got %q", got)
	}
	if got := logging.FormatSubject("abc", "datadir", ""); got != "Run abc · datadir" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestContextHelpersReportCallerSource(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", AddSource: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "fix pass dropped entries", "data_dir_fixed")
	logging.ErrorWithContext(logger, "stage failed", "stage_failure")

	out := buf.String()
	if strings.Contains(out, "attrs.go") {
		t.Fatalf("expected caller location instead of helper location, got %q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var warn, fail string
	for _, line := range lines {
		switch {
		case strings.Contains(line, "fix pass dropped entries"):
			warn = line
		case strings.Contains(line, "stage failed"):
			fail = line
		}
	}
	for _, line := range []string{warn, fail} {
		if !strings.Contains(line, "logger_test.go:") ||
			!strings.Contains(line, "logging_test.TestContextHelpersReportCallerSource") {
			t.Fatalf("expected test file and function in %q", line)
		}
	}
}
