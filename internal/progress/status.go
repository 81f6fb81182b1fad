package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Status renders a stage banner such as "Reading package indexes...".
// On a terminal the banner stays on one line and Done rewrites it with
// the closing text. Elsewhere each call prints a plain line.
type Status struct {
	out    io.Writer
	tty    bool
	active bool
}

// NewStatus returns a Status writing to out, or to stderr when out is nil.
func NewStatus(out io.Writer) *Status {
	if out == nil {
		out = os.Stderr
	}
	return &Status{out: out, tty: ShouldShowProgress()}
}

// Begin prints the opening banner.
func (s *Status) Begin(text string) {
	s.active = true
	if s.tty {
		fmt.Fprintf(s.out, "\r%s", pad(text))
		return
	}
	fmt.Fprintln(s.out, text)
}

// Done replaces the banner with the closing text. Calling Done without
// a preceding Begin prints the text as a plain line.
func (s *Status) Done(text string) {
	if s.tty && s.active {
		fmt.Fprintf(s.out, "\r%s\r%s\n", strings.Repeat(" ", 80), text)
	} else {
		fmt.Fprintln(s.out, text)
	}
	s.active = false
}

func pad(line string) string {
	if len(line) < 80 {
		return line + strings.Repeat(" ", 80-len(line))
	}
	return line
}
