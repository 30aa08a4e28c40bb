package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

type kindStyle struct {
	tag   string
	color string
}

var kindStyles = map[statusKind]kindStyle{
	statusInfo:  {tag: "INFO", color: "\x1b[34m"},
	statusOK:    {tag: "OK", color: "\x1b[32m"},
	statusWarn:  {tag: "WARN", color: "\x1b[33m"},
	statusError: {tag: "ERROR", color: "\x1b[31m"},
}

const colorReset = "\x1b[0m"

// statusPrinter accumulates the lines of the status report.
type statusPrinter struct {
	colorize bool
	width    int
	lines    []string
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	return &statusPrinter{colorize: shouldColorize(w), width: 14}
}

var titleCaser = cases.Title(language.Und)

// displayLabel turns identifiers like "eval1" or "data_prep" into "Eval1" and
// "Data Prep".
func displayLabel(name string) string {
	return titleCaser.String(strings.ReplaceAll(strings.TrimSpace(name), "_", " "))
}

func (p *statusPrinter) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	p.lines = append(p.lines,
		p.paint(statusInfo, heading),
		p.paint(statusInfo, strings.Repeat("-", len(heading))))
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	style := kindStyles[kind]
	text := fmt.Sprintf("  %-*s [%s]", p.width, label+":", style.tag)
	if message != "" {
		text += " " + message
	}
	p.lines = append(p.lines, p.paint(kind, text))
}

func (p *statusPrinter) paint(kind statusKind, text string) string {
	if !p.colorize {
		return text
	}
	return kindStyles[kind].color + text + colorReset
}

func (p *statusPrinter) String() string {
	return strings.Join(p.lines, "\n")
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
