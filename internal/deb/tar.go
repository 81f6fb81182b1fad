package deb

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// untar extracts a data tarball into dir. Existing directory symlinks
// are kept, so entries for /bin land in /usr/bin on a merged root.
// Ownership is applied when running as root; modes and mtimes always.
func untar(r io.Reader, dir string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}

		name := strings.TrimPrefix(filepath.Clean(header.Name), "./")
		if name == "" || name == "." {
			continue
		}
		target := filepath.Join(dir, name)
		if !withinDirectory(target, dir) {
			return fmt.Errorf("entry %q escapes the target directory", header.Name)
		}

		if err := extractEntry(tr, header, target, dir); err != nil {
			return fmt.Errorf("entry %q: %w", header.Name, err)
		}
	}
}

func extractEntry(tr *tar.Reader, header *tar.Header, target, dir string) error {
	mode := header.FileInfo().Mode()

	switch header.Typeflag {
	case tar.TypeDir:
		if keepExistingDir(target) {
			return nil
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return err
		}
		if err := os.Chmod(target, mode); err != nil {
			return err
		}

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		if err := os.Chmod(target, mode); err != nil {
			return err
		}

	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		os.Remove(target)
		if err := os.Symlink(header.Linkname, target); err != nil {
			return err
		}

	case tar.TypeLink:
		source := filepath.Join(dir, strings.TrimPrefix(filepath.Clean(header.Linkname), "./"))
		if !withinDirectory(source, dir) {
			return fmt.Errorf("hard link source %q escapes the target directory", header.Linkname)
		}
		os.Remove(target)
		if err := os.Link(source, target); err != nil {
			return err
		}

	case tar.TypeChar:
		return makeNode(target, unix.S_IFCHR, header)

	case tar.TypeBlock:
		return makeNode(target, unix.S_IFBLK, header)

	case tar.TypeFifo:
		if err := unix.Mkfifo(target, uint32(header.Mode)); err != nil {
			return err
		}

	default:
		return nil
	}

	return finishEntry(header, target)
}

// finishEntry applies ownership and timestamps. Ownership failures are
// ignored for unprivileged runs.
func finishEntry(header *tar.Header, target string) error {
	if err := os.Lchown(target, header.Uid, header.Gid); err != nil && os.Geteuid() == 0 {
		return err
	}
	if header.Typeflag == tar.TypeSymlink {
		return nil
	}
	if !header.ModTime.IsZero() {
		if err := os.Chtimes(target, header.ModTime, header.ModTime); err != nil {
			return err
		}
	}
	return nil
}

func makeNode(target string, kind uint32, header *tar.Header) error {
	dev := unix.Mkdev(uint32(header.Devmajor), uint32(header.Devminor))
	if err := unix.Mknod(target, kind|uint32(header.Mode), int(dev)); err != nil {
		return err
	}
	return finishEntry(header, target)
}

// keepExistingDir reports whether target already serves as a
// directory, either directly or through a symlink that resolves to
// one.
func keepExistingDir(target string) bool {
	fi, err := os.Lstat(target)
	if err != nil {
		return false
	}
	if fi.IsDir() {
		return true
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		resolved, err := os.Stat(target)
		return err == nil && resolved.IsDir()
	}
	return false
}

func withinDirectory(target, base string) bool {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// tarFileContents returns the contents of the first entry named name,
// tolerating a leading "./".
func tarFileContents(r io.Reader, name string) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no %s entry in tarball", name)
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimPrefix(filepath.Clean(header.Name), "./") == name {
			return io.ReadAll(tr)
		}
	}
}
