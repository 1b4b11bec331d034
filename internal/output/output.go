// Package output provides formatted console output for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// Writer handles CLI output formatting.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
	quiet bool
}

// New creates a Writer on stdout and stderr, with color when stdout is a
// terminal.
func New() *Writer {
	return &Writer{
		out:   os.Stdout,
		err:   os.Stderr,
		color: isTerminal(),
	}
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{
		out:   out,
		err:   err,
		color: color,
	}
}

// SetQuiet enables or disables quiet mode.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// Quiet reports whether quiet mode is enabled.
func (w *Writer) Quiet() bool {
	return w.quiet
}

// Out returns the stdout writer.
func (w *Writer) Out() io.Writer {
	return w.out
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...any) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Info prints an info message (skipped in quiet mode).
func (w *Writer) Info(format string, args ...any) {
	if w.quiet {
		return
	}
	w.Println(format, args...)
}

// Warning prints a warning to stderr.
func (w *Writer) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Errorln("%swarning:%s %s", yellow, reset, msg)
	} else {
		w.Errorln("warning: %s", msg)
	}
}

// ErrorPrefix prints an error message with the program prefix to stderr.
func (w *Writer) ErrorPrefix(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Errorln("%sdocsuite:%s %s", red, reset, msg)
	} else {
		w.Errorln("docsuite: %s", msg)
	}
}

// Section prints a section header (skipped in quiet mode).
func (w *Writer) Section(title string) {
	if w.quiet {
		return
	}
	w.Println("")
	if w.color {
		w.Println("%s=== %s ===%s", bold+cyan, title, reset)
	} else {
		w.Println("=== %s ===", title)
	}
}

// Table prints a simple aligned table.
func (w *Writer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	w.Println("%s", joinCells(headers, widths))

	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	w.Println("%s", strings.Join(sep, "  "))

	for _, row := range rows {
		w.Println("%s", joinCells(row, widths))
	}
}

func joinCells(cells []string, widths []int) string {
	parts := make([]string, 0, len(widths))
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// PackageResult prints one line for a finished package run. errMsg is
// empty when the invocation succeeded.
func (w *Writer) PackageResult(name, category string, passed, failed int, elapsed time.Duration, errMsg string) {
	counts := fmt.Sprintf("%d passed, %d failed", passed, failed)
	dur := FormatDuration(elapsed)
	ok := errMsg == "" && failed == 0

	if w.color {
		mark, tint := green+"✓", green
		if !ok {
			mark, tint = red+"✗", red
		}
		w.Print("  %s%s %-24s %s%-10s%s %s%s%s %s%s%s", mark, reset, name, dim, category, reset, tint, counts, reset, dim, dur, reset)
		if errMsg != "" {
			w.Print("  %s(%s)%s", dim, errMsg, reset)
		}
	} else {
		mark := "+"
		if !ok {
			mark = "x"
		}
		w.Print("  %s %-24s %-10s %s %s", mark, name, category, counts, dur)
		if errMsg != "" {
			w.Print("  (%s)", errMsg)
		}
	}
	w.Print("\n")
}

// SummaryHeader prints a summary section header.
func (w *Writer) SummaryHeader(title string) {
	w.Println("")
	if w.color {
		w.Println("%s=== %s ===%s", bold+cyan, title, reset)
	} else {
		w.Println("=== %s ===", title)
	}
	w.Println("")
}

// SummaryItem prints a labeled summary value.
func (w *Writer) SummaryItem(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s", dim, label, reset, value)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// SummaryPassed prints a labeled value in the success color.
func (w *Writer) SummaryPassed(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s%s%s", dim, label, reset, green, value, reset)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// SummaryFailed prints a labeled value in the failure color.
func (w *Writer) SummaryFailed(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s%s%s", dim, label, reset, red, value, reset)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// FinalSuccess prints a final success message.
func (w *Writer) FinalSuccess(format string, args ...any) {
	w.Println("")
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s", green, msg, reset)
	} else {
		w.Println("%s", msg)
	}
}

// FinalFailure prints a final failure message.
func (w *Writer) FinalFailure(format string, args ...any) {
	w.Println("")
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s", red, msg, reset)
	} else {
		w.Println("%s", msg)
	}
}

// DryRun prints a notice that the upload was skipped.
func (w *Writer) DryRun(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s[dry run]%s %s", bold+yellow, reset, msg)
	} else {
		w.Println("[dry run] %s", msg)
	}
}

// FormatDuration renders d rounded for display, e.g. "1.2s" or "3m4s".
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// isTerminal returns true if stdout is a terminal.
func isTerminal() bool {
	if fi, _ := os.Stdout.Stat(); fi != nil {
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}
