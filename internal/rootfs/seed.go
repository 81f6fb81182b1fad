package rootfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/debstrap-dev/debstrap/internal/archive"
	"github.com/debstrap-dev/debstrap/internal/sources"
)

const defaultFstab = "# UNCONFIGURED FSTAB FOR BASE SYSTEM\n"

const defaultHosts = `127.0.0.1	localhost
::1		localhost ip6-localhost ip6-loopback
ff02::1		ip6-allnodes
ff02::2		ip6-allrouters
`

const policyRcD = `#!/bin/sh
exit 101
`

const startStopDaemonShim = `#!/bin/sh
echo "Warning: Fake start-stop-daemon called, doing nothing"
exit 0
`

// originalSuffix marks the relocated real start-stop-daemon.
const originalSuffix = ".ORIGINAL"

// WriteDpkgBookkeeping seeds var/lib/dpkg with empty status and
// available files and the target architecture list.
func WriteDpkgBookkeeping(root string, architectures []string) error {
	dir := filepath.Join(root, "var", "lib", "dpkg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating dpkg state directory: %w", err)
	}
	for _, name := range []string{"status", "available"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			return err
		}
	}

	var arch strings.Builder
	for _, a := range architectures {
		arch.WriteString(a)
		arch.WriteString("\n")
	}
	return os.WriteFile(filepath.Join(dir, "arch"), []byte(arch.String()), 0o644)
}

// WriteBaseFiles installs the placeholder etc/fstab and etc/hosts.
func WriteBaseFiles(root string) error {
	etc := filepath.Join(root, "etc")
	if err := os.MkdirAll(etc, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(etc, "fstab"), []byte(defaultFstab), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(etc, "hosts"), []byte(defaultHosts), 0o644)
}

// InstallPolicyRcD blocks service starts from maintainer scripts for
// the duration of the install phase.
func InstallPolicyRcD(root string) error {
	dir := filepath.Join(root, "usr", "sbin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "policy-rc.d"), []byte(policyRcD), 0o755)
}

// RemovePolicyRcD removes the shim. Missing files are not an error.
func RemovePolicyRcD(root string) error {
	err := os.Remove(filepath.Join(root, "usr", "sbin", "policy-rc.d"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// startStopDaemonPath locates the installed start-stop-daemon,
// preferring sbin over usr/sbin.
func startStopDaemonPath(root string) (string, bool) {
	for _, dir := range []string{"sbin", filepath.Join("usr", "sbin")} {
		candidate := filepath.Join(root, dir, "start-stop-daemon")
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// DivertStartStopDaemon moves the real start-stop-daemon aside and
// installs a shim that exits successfully without doing anything, so
// maintainer scripts cannot manage daemons mid-bootstrap. Roots
// without the binary are left alone.
func DivertStartStopDaemon(root string) error {
	real, ok := startStopDaemonPath(root)
	if !ok {
		return nil
	}
	if err := os.Rename(real, real+originalSuffix); err != nil {
		return fmt.Errorf("diverting start-stop-daemon: %w", err)
	}
	return os.WriteFile(real, []byte(startStopDaemonShim), 0o755)
}

// RestoreStartStopDaemon removes the shim and puts the original back.
// A root that was never diverted is left alone.
func RestoreStartStopDaemon(root string) error {
	for _, dir := range []string{"sbin", filepath.Join("usr", "sbin")} {
		original := filepath.Join(root, dir, "start-stop-daemon"+originalSuffix)
		if _, err := os.Stat(original); err != nil {
			continue
		}
		shim := strings.TrimSuffix(original, originalSuffix)
		if err := os.Remove(shim); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Rename(original, shim)
	}
	return nil
}

// LinkShellFallback points bin/sh and bin/dash at bash for roots
// bootstrapped without dash, so maintainer scripts have a shell.
// Existing names are kept.
func LinkShellFallback(root string) error {
	bin := filepath.Join(root, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		return err
	}
	for _, name := range []string{"sh", "dash"} {
		link := filepath.Join(bin, name)
		if _, err := os.Lstat(link); err == nil {
			continue
		}
		if err := os.Symlink("bash", link); err != nil && !os.IsExist(err) {
			return fmt.Errorf("linking %s: %w", name, err)
		}
	}
	return nil
}

// awkProviders is the preference order for the awk symlink.
var awkProviders = []string{"mawk", "original-awk", "gawk"}

// LinkAwk points usr/bin/awk at the first awk implementation present
// in the root. Roots that already have an awk are left alone.
func LinkAwk(root string) error {
	link := filepath.Join(root, "usr", "bin", "awk")
	if _, err := os.Lstat(link); err == nil {
		return nil
	}
	for _, provider := range awkProviders {
		if _, err := os.Stat(filepath.Join(root, "usr", "bin", provider)); err != nil {
			continue
		}
		return os.Symlink(provider, link)
	}
	return nil
}

// WriteAptSources emits the apt sources into the root using the
// requested dialect: etc/apt/sources.list for the one-line format,
// etc/apt/sources.list.d/sources.sources for deb822.
func WriteAptSources(root string, entries []sources.Entry, format archive.SourcesListFormat) error {
	dir := filepath.Join(root, "etc", "apt")
	if format == archive.FormatDeb822 {
		dir = filepath.Join(dir, "sources.list.d")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, sources.ListFileName(format)))
	if err != nil {
		return err
	}
	if err := sources.WriteList(f, entries, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ResetMachineID replaces an existing etc/machine-id with the
// uninitialized marker so first boot generates a fresh identity.
func ResetMachineID(root string) error {
	p := filepath.Join(root, "etc", "machine-id")
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.WriteFile(p, []byte("uninitialized\n"), 0o644)
}

// RemovePackagesDir drops the staged bucket directories from the
// target after installation.
func RemovePackagesDir(root string) error {
	return os.RemoveAll(filepath.Join(root, "packages"))
}
