// Package progress renders transfer and stage progress on interactive
// terminals. Output degrades to plain lines when stdout is not a TTY.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// IsTerminalFunc reports whether a file descriptor is a terminal.
// It can be overridden for testing.
var IsTerminalFunc = term.IsTerminal

// ShouldShowProgress returns true when progress should be rendered,
// which is when stdout is a terminal.
func ShouldShowProgress() bool {
	return IsTerminalFunc(int(os.Stdout.Fd()))
}

// Writer counts bytes flowing to an underlying writer and renders a
// single-line transfer bar on the display writer. The pipeline copies
// one file at a time, so no locking is needed.
type Writer struct {
	dst     io.Writer
	display io.Writer
	total   int64
	count   int64
	started time.Time
	stamped time.Time
}

// NewWriter returns a Writer that forwards to dst and renders progress
// for an expected total of total bytes. A total of zero or less
// disables the percentage and bar.
func NewWriter(dst io.Writer, total int64, display io.Writer) *Writer {
	return &Writer{
		dst:     dst,
		display: display,
		total:   total,
		started: time.Now(),
	}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	if n > 0 {
		w.count += int64(n)
		w.render()
	}
	return n, err
}

// Finish clears the progress line.
func (w *Writer) Finish() {
	fmt.Fprintf(w.display, "\r%s\r", strings.Repeat(" ", 80))
}

// render redraws the progress line, at most ten times per second.
func (w *Writer) render() {
	now := time.Now()
	if now.Sub(w.stamped) < 100*time.Millisecond {
		return
	}
	w.stamped = now

	elapsed := now.Sub(w.started).Seconds()
	if elapsed < 0.1 {
		return
	}
	speed := float64(w.count) / elapsed

	var line string
	if w.total > 0 {
		percent := float64(w.count) / float64(w.total) * 100
		if percent > 100 {
			percent = 100
		}

		const width = 30
		filled := int(percent / 100 * float64(width))
		if filled > width {
			filled = width
		}
		bar := strings.Repeat("=", filled)
		if filled < width {
			bar += ">" + strings.Repeat(" ", width-filled-1)
		}

		line = fmt.Sprintf("\r   [%s] %3.0f%% (%s/%s) %s/s",
			bar, percent, FormatBytes(w.count), FormatBytes(w.total), FormatBytes(int64(speed)))
	} else {
		line = fmt.Sprintf("\r   %s (%s/s)", FormatBytes(w.count), FormatBytes(int64(speed)))
	}

	if len(line) < 80 {
		line += strings.Repeat(" ", 80-len(line))
	}
	_, _ = fmt.Fprint(w.display, line)
}

// FormatBytes formats a byte count for humans.
func FormatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case b >= GB:
		return fmt.Sprintf("%.1fGB", float64(b)/GB)
	case b >= MB:
		return fmt.Sprintf("%.1fMB", float64(b)/MB)
	case b >= KB:
		return fmt.Sprintf("%.1fKB", float64(b)/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}
