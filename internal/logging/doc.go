// Package logging assembles structured slog loggers and formatting helpers used
// across the runner.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code automatically tags log lines
// with the run ID, stage, and partition. Source annotation prints file, line,
// and function so a failing sub-step can be traced from the log alone. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
