package chroot

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// InstallFailureError reports dpkg failing inside the chroot.
type InstallFailureError struct {
	Bucket string
	Err    error
}

// Error implements the error interface.
func (e *InstallFailureError) Error() string {
	return fmt.Sprintf("installing %s packages: %v", e.Bucket, e.Err)
}

func (e *InstallFailureError) Unwrap() error { return e.Err }

// chrootPath is the PATH exported to dpkg and the maintainer scripts it
// runs.
const chrootPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Installer runs dpkg inside the chroot.
type Installer struct {
	// Root is the chroot directory.
	Root string
	// Term is the TERM value exported to maintainer scripts, already
	// normalised for the colour decision.
	Term string
	// Interactive switches debconf from noninteractive to dialog.
	Interactive bool
	// Color selects DPKG_COLORS.
	Color bool
	// Stdout and Stderr receive dpkg output. Nil means the process
	// streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Overridable for tests: running dpkg needs root and a populated chroot.
var runCommand = func(cmd *exec.Cmd) error { return cmd.Run() }

// InstallBucket runs dpkg over every .deb staged under /packages/<bucket>
// inside the chroot. Buckets whose directory is absent are skipped.
func (i *Installer) InstallBucket(ctx context.Context, bucket string) error {
	if _, err := os.Stat(filepath.Join(i.Root, "packages", bucket)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &InstallFailureError{Bucket: bucket, Err: err}
	}
	if err := runCommand(i.command(ctx, installScript(bucket))); err != nil {
		return &InstallFailureError{Bucket: bucket, Err: err}
	}
	return nil
}

// FixShellAlternatives re-registers /bin/sh through update-alternatives
// once dpkg is functional, replacing the plain bash symlink planted so
// the first maintainer scripts could run at all.
func (i *Installer) FixShellAlternatives(ctx context.Context) error {
	script := "rm -f /bin/sh && update-alternatives --quiet --install /bin/sh sh /bin/bash 1"
	if err := runCommand(i.command(ctx, script)); err != nil {
		return fmt.Errorf("re-establishing sh alternative: %w", err)
	}
	return nil
}

func installScript(bucket string) string {
	return fmt.Sprintf("cd /packages/%s && dpkg --force-depends --force-confold --install *.deb", bucket)
}

func (i *Installer) command(ctx context.Context, script string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "chroot", i.Root, "/bin/sh", "-c", script)
	cmd.Env = i.environment()
	cmd.Stdout = i.Stdout
	cmd.Stderr = i.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd
}

// environment builds the variables exported to dpkg and the maintainer
// scripts it runs.
func (i *Installer) environment() []string {
	frontend, seen := "noninteractive", "true"
	if i.Interactive {
		frontend, seen = "dialog", "false"
	}
	colors := "never"
	if i.Color {
		colors = "always"
	}
	return []string{
		"HOME=/root",
		"TERM=" + i.Term,
		"PATH=" + chrootPath,
		"DEBIAN_FRONTEND=" + frontend,
		"DEBCONF_NONINTERACTIVE_SEEN=" + seen,
		"DEBCONF_NOWARNINGS=yes",
		"DPKG_COLORS=" + colors,
	}
}
