package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"kiritan/internal/config"
)

// LogFileName is the file written under the configured log directory.
const LogFileName = "kiritan.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// AddSource annotates every record with file, line, and function. Debug
	// level always annotates.
	AddSource bool
	// Writer defaults to stdout.
	Writer io.Writer
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputWriter := opts.Writer
	if outputWriter == nil {
		outputWriter = os.Stdout
	}

	addSource := opts.AddSource || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(outputWriter, levelVar, addSource)
	case "console":
		handler = newPrettyHandler(outputWriter, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(handler), nil
}

// NewFromConfig creates a logger using application config defaults. Records go
// to console (stderr when nil) and to the log file under the configured log
// directory. The returned close func releases the log file.
func NewFromConfig(cfg *config.Config, console io.Writer) (*slog.Logger, func() error, error) {
	if console == nil {
		console = os.Stderr
	}
	closeFn := func() error { return nil }
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console", Writer: console, AddSource: true})
		return logger, closeFn, err
	}

	writer := console
	if cfg.Paths.LogDir != "" {
		path := filepath.Join(cfg.Paths.LogDir, LogFileName)
		if err := ensureLogDir(path); err != nil {
			return nil, nil, err
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		writer = io.MultiWriter(console, file)
		closeFn = file.Close
	}

	logger, err := New(Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Writer:    writer,
		AddSource: cfg.Logging.Source,
	})
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// shortFunction trims the import path from a runtime function name,
// "kiritan/internal/workflow.Run" becomes "workflow.Run".
func shortFunction(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
