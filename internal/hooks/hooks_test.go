package hooks

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"slices"
	"strings"
	"testing"

	"github.com/debstrap-dev/debstrap/internal/message"
)

func stubRunCommand(t *testing.T, fail map[string]error) *[]*exec.Cmd {
	t.Helper()
	orig := runCommand
	t.Cleanup(func() { runCommand = orig })

	var captured []*exec.Cmd
	runCommand = func(cmd *exec.Cmd) error {
		captured = append(captured, cmd)
		return fail[cmd.Args[len(cmd.Args)-1]]
	}
	return &captured
}

func testRunner(warnings *bytes.Buffer) *Runner {
	return &Runner{
		Workspace:   "/tmp/debstrap_abcd1234",
		PackagesDir: "/tmp/debstrap_abcd1234/packages",
		TargetDir:   "/tmp/debstrap_abcd1234/target",
		Printer:     message.NewPrinterTo(&bytes.Buffer{}, warnings, message.Config{}),
	}
}

func TestEnvironmentPerPoint(t *testing.T) {
	r := testRunner(&bytes.Buffer{})

	cases := []struct {
		point    Point
		packages bool
		target   bool
	}{
		{Download, true, false},
		{Extract, true, true},
		{Essential, true, true},
		{Target, true, true},
		{Done, false, true},
	}
	for _, c := range cases {
		env := r.environment(c.point)
		if !slices.Contains(env, "WORKSPACE="+r.Workspace) {
			t.Errorf("%s: WORKSPACE missing from %v", c.point, env)
		}
		if got := slices.Contains(env, "PACKAGES="+r.PackagesDir); got != c.packages {
			t.Errorf("%s: PACKAGES present = %v, want %v", c.point, got, c.packages)
		}
		if got := slices.Contains(env, "TARGET="+r.TargetDir); got != c.target {
			t.Errorf("%s: TARGET present = %v, want %v", c.point, got, c.target)
		}
	}
}

func TestRunExecutesCommandsInOrder(t *testing.T) {
	captured := stubRunCommand(t, nil)
	r := testRunner(&bytes.Buffer{})
	r.Commands = map[Point][]string{
		Extract: {"echo first", "echo second"},
		Done:    {"echo never"},
	}

	r.Run(context.Background(), Extract)

	if len(*captured) != 2 {
		t.Fatalf("ran %d commands, want 2", len(*captured))
	}
	for i, want := range []string{"echo first", "echo second"} {
		cmd := (*captured)[i]
		if got := cmd.Args[len(cmd.Args)-1]; got != want {
			t.Errorf("command %d = %q, want %q", i, got, want)
		}
		if cmd.Args[0] != "/bin/sh" || cmd.Args[1] != "-c" {
			t.Errorf("command %d not run through sh -c: %v", i, cmd.Args)
		}
		if !slices.Contains(cmd.Env, "TARGET="+r.TargetDir) {
			t.Errorf("command %d missing TARGET", i)
		}
	}
}

func TestRunNoCommandsRegistered(t *testing.T) {
	captured := stubRunCommand(t, nil)
	r := testRunner(&bytes.Buffer{})

	r.Run(context.Background(), Essential)

	if len(*captured) != 0 {
		t.Errorf("ran %d commands, want none", len(*captured))
	}
}

func TestRunFailureWarnsAndContinues(t *testing.T) {
	captured := stubRunCommand(t, map[string]error{
		"false": errors.New("exit status 1"),
	})
	var warnings bytes.Buffer
	r := testRunner(&warnings)
	r.Commands = map[Point][]string{
		Done: {"false", "echo after"},
	}

	r.Run(context.Background(), Done)

	if len(*captured) != 2 {
		t.Fatalf("ran %d commands, want both despite the failure", len(*captured))
	}
	warning := warnings.String()
	if !strings.Contains(warning, "warning:") || !strings.Contains(warning, "done hook") {
		t.Errorf("warning output = %q", warning)
	}
}
