package chroot

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
)

func stubRunCommand(t *testing.T) *[]*exec.Cmd {
	t.Helper()
	orig := runCommand
	t.Cleanup(func() { runCommand = orig })

	var captured []*exec.Cmd
	runCommand = func(cmd *exec.Cmd) error {
		captured = append(captured, cmd)
		return nil
	}
	return &captured
}

func TestInstallBucketCommand(t *testing.T) {
	captured := stubRunCommand(t)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "packages/essential"), 0o755); err != nil {
		t.Fatal(err)
	}

	inst := &Installer{Root: root, Term: "xterm-256color", Color: true}
	if err := inst.InstallBucket(context.Background(), "essential"); err != nil {
		t.Fatalf("InstallBucket failed: %v", err)
	}

	if len(*captured) != 1 {
		t.Fatalf("ran %d commands, want 1", len(*captured))
	}
	cmd := (*captured)[0]
	wantArgs := []string{
		"chroot", root, "/bin/sh", "-c",
		"cd /packages/essential && dpkg --force-depends --force-confold --install *.deb",
	}
	if !slices.Equal(cmd.Args, wantArgs) {
		t.Errorf("args = %v, want %v", cmd.Args, wantArgs)
	}
	for _, entry := range []string{
		"HOME=/root",
		"TERM=xterm-256color",
		"PATH=" + chrootPath,
		"DEBIAN_FRONTEND=noninteractive",
		"DEBCONF_NONINTERACTIVE_SEEN=true",
		"DEBCONF_NOWARNINGS=yes",
		"DPKG_COLORS=always",
	} {
		if !slices.Contains(cmd.Env, entry) {
			t.Errorf("environment missing %q: %v", entry, cmd.Env)
		}
	}
}

func TestInstallBucketSkipsAbsentDirectory(t *testing.T) {
	captured := stubRunCommand(t)
	inst := &Installer{Root: t.TempDir(), Term: "dump"}

	if err := inst.InstallBucket(context.Background(), "standard"); err != nil {
		t.Fatalf("InstallBucket failed: %v", err)
	}
	if len(*captured) != 0 {
		t.Errorf("ran %d commands for an absent bucket, want none", len(*captured))
	}
}

func TestInstallBucketFailure(t *testing.T) {
	orig := runCommand
	t.Cleanup(func() { runCommand = orig })
	boom := errors.New("dpkg exited 2")
	runCommand = func(cmd *exec.Cmd) error { return boom }

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "packages/required"), 0o755); err != nil {
		t.Fatal(err)
	}

	inst := &Installer{Root: root, Term: "dump"}
	err := inst.InstallBucket(context.Background(), "required")

	var installErr *InstallFailureError
	if !errors.As(err, &installErr) {
		t.Fatalf("error = %v, want InstallFailureError", err)
	}
	if installErr.Bucket != "required" {
		t.Errorf("Bucket = %q, want %q", installErr.Bucket, "required")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error does not wrap the dpkg failure: %v", err)
	}
}

func TestInteractiveEnvironment(t *testing.T) {
	inst := &Installer{Root: "/target", Term: "linux", Interactive: true}
	env := inst.environment()

	for _, entry := range []string{
		"DEBIAN_FRONTEND=dialog",
		"DEBCONF_NONINTERACTIVE_SEEN=false",
		"DPKG_COLORS=never",
		"TERM=linux",
	} {
		if !slices.Contains(env, entry) {
			t.Errorf("environment missing %q: %v", entry, env)
		}
	}
}

func TestFixShellAlternatives(t *testing.T) {
	captured := stubRunCommand(t)
	inst := &Installer{Root: "/target", Term: "dump"}

	if err := inst.FixShellAlternatives(context.Background()); err != nil {
		t.Fatalf("FixShellAlternatives failed: %v", err)
	}
	if len(*captured) != 1 {
		t.Fatalf("ran %d commands, want 1", len(*captured))
	}
	script := (*captured)[0].Args[len((*captured)[0].Args)-1]
	if script != "rm -f /bin/sh && update-alternatives --quiet --install /bin/sh sh /bin/bash 1" {
		t.Errorf("script = %q", script)
	}
}
