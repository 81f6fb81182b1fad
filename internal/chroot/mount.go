// Package chroot mounts the virtual kernel filesystems a Debian chroot
// needs and drives dpkg inside it, one priority bucket at a time.
package chroot

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sys/unix"
)

// MountFailureError reports a failed mount or unmount operation.
type MountFailureError struct {
	Source string
	Target string
	Err    error
}

// Error implements the error interface.
func (e *MountFailureError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("unmounting %s: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("mounting %s on %s: %v", e.Source, e.Target, e.Err)
}

func (e *MountFailureError) Unwrap() error { return e.Err }

// mountPoint describes one virtual kernel filesystem.
type mountPoint struct {
	source string
	path   string // relative to the chroot root
	fstype string
	flags  uintptr
}

// kernelMounts lists the filesystems maintainer scripts expect, in
// mount order. dev/pts must follow dev so the bind of /dev does not
// shadow it.
var kernelMounts = []mountPoint{
	{source: "/dev", path: "dev", flags: unix.MS_BIND},
	{source: "/dev/pts", path: "dev/pts", flags: unix.MS_BIND},
	{source: "proc", path: "proc", fstype: "proc"},
	{source: "sysfs", path: "sys", fstype: "sysfs"},
	{source: "tmpfs", path: "run", fstype: "tmpfs"},
}

// Overridable for tests: the real syscalls need CAP_SYS_ADMIN, and the
// kernel mount table cannot be seeded from a test.
var (
	mountFunc   = unix.Mount
	unmountFunc = unix.Unmount
	mountsFile  = "/proc/mounts"
)

// MountKernelFilesystems bind-mounts /dev and /dev/pts and mounts proc,
// sysfs and a tmpfs on run under root, in that order. On failure the
// filesystems mounted so far are released in reverse order before the
// error is returned.
func MountKernelFilesystems(root string) error {
	var mounted []string
	for _, m := range kernelMounts {
		target := filepath.Join(root, m.path)
		if err := os.MkdirAll(target, 0o755); err != nil {
			releaseMounts(mounted)
			return &MountFailureError{Source: m.source, Target: target, Err: err}
		}
		if err := mountFunc(m.source, target, m.fstype, m.flags, ""); err != nil {
			releaseMounts(mounted)
			return &MountFailureError{Source: m.source, Target: target, Err: err}
		}
		mounted = append(mounted, target)
	}
	return nil
}

func releaseMounts(mounted []string) {
	for i := len(mounted) - 1; i >= 0; i-- {
		_ = unmountFunc(mounted[i], 0)
	}
}

// UnmountAll unmounts every filesystem the kernel reports at or below
// root, deepest first. It consults the live mount table rather than
// remembering what was mounted, so it is idempotent and also releases
// mounts created by maintainer scripts. The count of unmounted
// filesystems is returned so callers can warn when there was nothing
// to do.
func UnmountAll(root string) (int, error) {
	paths, err := mountsUnder(root)
	if err != nil {
		return 0, err
	}
	slices.Sort(paths)
	slices.Reverse(paths)

	var firstErr error
	released := 0
	for _, path := range paths {
		if err := unmountFunc(path, 0); err != nil {
			if firstErr == nil {
				firstErr = &MountFailureError{Target: path, Err: err}
			}
			continue
		}
		released++
	}
	return released, firstErr
}

// mountsUnder returns the mount points at or below root recorded in the
// kernel mount table.
func mountsUnder(root string) ([]string, error) {
	data, err := os.ReadFile(mountsFile)
	if err != nil {
		return nil, fmt.Errorf("reading mount table: %w", err)
	}
	prefix := strings.TrimSuffix(root, "/")

	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		path := unescapeMountPath(fields[1])
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// unescapeMountPath reverses the octal escapes the kernel applies to
// whitespace and backslashes in mount table paths.
func unescapeMountPath(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}
