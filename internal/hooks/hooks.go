// Package hooks runs user-supplied shell commands at fixed points in
// the bootstrap pipeline.
package hooks

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/debstrap-dev/debstrap/internal/message"
)

// Point names a pipeline position where hook commands run.
type Point string

const (
	// Download runs after the resolved packages have been downloaded.
	Download Point = "download"
	// Extract runs after package contents have been extracted.
	Extract Point = "extract"
	// Essential runs after the essential bucket has been installed.
	Essential Point = "essential"
	// Target runs once the target tree is fully installed.
	Target Point = "target"
	// Done runs last, after in-chroot installation completes and
	// before the output artifact is produced.
	Done Point = "done"
)

// Runner executes the hook commands registered for each point. Hook
// failures are reported as warnings; they never abort the pipeline.
type Runner struct {
	// Commands maps each point to the shell commands registered for it.
	Commands map[Point][]string

	// Workspace, PackagesDir and TargetDir are exported to hook
	// processes as WORKSPACE, PACKAGES and TARGET.
	Workspace   string
	PackagesDir string
	TargetDir   string

	Printer *message.Printer

	// Stdout and Stderr receive hook output. Nil means the process
	// streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Overridable for tests.
var runCommand = func(cmd *exec.Cmd) error { return cmd.Run() }

// Run executes every command registered for the point, in order. A
// command exiting non-zero is reported as a warning and does not stop
// the remaining commands.
func (r *Runner) Run(ctx context.Context, point Point) {
	for _, command := range r.Commands[point] {
		r.Printer.Debugf("%s hook: %s", point, command)
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
		cmd.Env = append(os.Environ(), r.environment(point)...)
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
		if cmd.Stdout == nil {
			cmd.Stdout = os.Stdout
		}
		if cmd.Stderr == nil {
			cmd.Stderr = os.Stderr
		}
		if err := runCommand(cmd); err != nil {
			r.Printer.Warnf("%s hook %q: %v", point, command, err)
		}
	}
}

// environment returns the variables a hook at the point receives:
// WORKSPACE always, PACKAGES for all points but done, TARGET for all
// points but download.
func (r *Runner) environment(point Point) []string {
	env := []string{"WORKSPACE=" + r.Workspace}
	if point != Done {
		env = append(env, "PACKAGES="+r.PackagesDir)
	}
	if point != Download {
		env = append(env, "TARGET="+r.TargetDir)
	}
	return env
}
