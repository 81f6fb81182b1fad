package message

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// IsTerminalFunc is the function used to check whether a file descriptor
// is a terminal. It can be overridden for testing.
var IsTerminalFunc = term.IsTerminal

// Config is the resolved output configuration.
type Config struct {
	Color bool
	Debug bool
}

// ResolveColor maps a DEBSTRAP_COLOR-style mode to a concrete on/off
// decision. "auto" turns colour on only when stdout is a terminal and
// NO_COLOR is unset. Unrecognised modes fall back to auto.
func ResolveColor(mode string) bool {
	switch mode {
	case "always", "true":
		return true
	case "never", "false":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminalFunc(int(os.Stdout.Fd()))
}

// NormalizeTerm returns the TERM value propagated into the chroot: the
// linux console keeps its terminal, everything else is pinned to a value
// matching the colour decision.
func NormalizeTerm(term string, colorOn bool) string {
	if term == "linux" {
		return "linux"
	}
	if colorOn {
		return "xterm-256color"
	}
	return "dump"
}

// Printer writes user-facing output: stage messages to stdout,
// diagnostics with error:/warning: prefixes to stderr.
type Printer struct {
	out   io.Writer
	err   io.Writer
	debug bool

	errorPrefix string
	warnPrefix  string
	debugPrefix string
}

// NewPrinter builds a Printer for the given configuration, writing to
// stdout and stderr.
func NewPrinter(cfg Config) *Printer {
	return NewPrinterTo(os.Stdout, os.Stderr, cfg)
}

// NewPrinterTo builds a Printer with explicit writers, used by tests.
func NewPrinterTo(out, err io.Writer, cfg Config) *Printer {
	p := &Printer{
		out:         out,
		err:         err,
		debug:       cfg.Debug,
		errorPrefix: "error:",
		warnPrefix:  "warning:",
		debugPrefix: "debug:",
	}
	if cfg.Color {
		red := color.New(color.FgRed, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		p.errorPrefix = red("error:")
		p.warnPrefix = yellow("warning:")
		p.debugPrefix = cyan("debug:")
	}
	return p
}

// Step prints a stage boundary message to stdout.
func (p *Printer) Step(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Warnf prints a warning: prefixed line to stderr.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintf(p.err, "%s %s\n", p.warnPrefix, fmt.Sprintf(format, args...))
}

// Errorf prints an error: prefixed line to stderr.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintf(p.err, "%s %s\n", p.errorPrefix, fmt.Sprintf(format, args...))
}

// Debugf prints a debug: prefixed line to stderr when debugging is on.
func (p *Printer) Debugf(format string, args ...any) {
	if !p.debug {
		return
	}
	fmt.Fprintf(p.err, "%s %s\n", p.debugPrefix, fmt.Sprintf(format, args...))
}

// Out returns the stdout-side writer, for callers that stream their own
// output such as the package table.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Confirm asks the proceed question and reads one line from in. An empty
// answer or anything starting with y or Y counts as yes.
func (p *Printer) Confirm(in io.Reader, question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [Y/n] ", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return true, nil
	}
	return answer[0] == 'y' || answer[0] == 'Y', nil
}
