package deb

import (
	"context"
	"fmt"
	"os/exec"
)

// extractWithDpkgDeb pipes `dpkg-deb --fsys-tarfile` into the tar
// extractor. The host dpkg-deb handles whatever compression the
// package carries.
func extractWithDpkgDeb(ctx context.Context, debPath, targetDir string) error {
	cmd := exec.CommandContext(ctx, "dpkg-deb", "--fsys-tarfile", debPath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &ExtractionError{Deb: debPath, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &ExtractionError{Deb: debPath, Err: err}
	}

	untarErr := untar(stdout, targetDir)
	waitErr := cmd.Wait()
	if untarErr != nil {
		return &ExtractionError{Deb: debPath, Err: untarErr}
	}
	if waitErr != nil {
		return &ExtractionError{Deb: debPath, Err: fmt.Errorf("dpkg-deb: %w", waitErr)}
	}
	return nil
}
