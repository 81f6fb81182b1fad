package rootfs

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Tarball name prefixes for the early-exit modes that package up raw
// downloads or a bare extracted tree.
const (
	TarballPrefixPackages  = "Packages_"
	TarballPrefixExtracted = "Extracted_"
)

// TarballName builds the conventional output file name, for example
// "bookworm_amd64_required_2026y-08m-25d.tar".
func TarballName(prefix string, parts []string, now time.Time) string {
	return prefix + strings.Join(parts, "_") + "_" + now.Format("2006y-01m-02d") + ".tar"
}

// CreateTarball archives the contents of root into an uncompressed
// tar file at outPath. Entry names are prefixed "./" so the tarball
// unpacks in place. Ownership and device numbers are preserved;
// hard-linked files are stored as independent copies.
func CreateTarball(root, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating tarball: %w", err)
	}
	tw := tar.NewWriter(out)

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if fi.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		}
		header, err := tar.FileInfoHeader(fi, link)
		if err != nil {
			return err
		}
		header.Name = "./" + filepath.ToSlash(rel)
		if fi.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if fi.Mode().IsRegular() {
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, f)
			f.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})

	if walkErr != nil {
		tw.Close()
		out.Close()
		os.Remove(outPath)
		return fmt.Errorf("archiving %s: %w", root, walkErr)
	}
	if err := tw.Close(); err != nil {
		out.Close()
		os.Remove(outPath)
		return err
	}
	return out.Close()
}
