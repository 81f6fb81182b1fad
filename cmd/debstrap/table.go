package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/debstrap-dev/debstrap/internal/archive"
	"github.com/debstrap-dev/debstrap/internal/progress"
)

// packageTable returns the callback that prints the resolved package
// list before the proceed prompt.
func packageTable(w io.Writer) func([]archive.Package) {
	return func(packages []archive.Package) {
		writeTable(w, packages)
	}
}

// writeTable renders the aligned name/version/size listing with a
// summary line. Installed-Size is recorded in KiB.
func writeTable(w io.Writer, packages []archive.Package) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tSIZE")

	var download, installed uint64
	for _, pkg := range packages {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", pkg.Name, pkg.Version, progress.FormatBytes(int64(pkg.Size)))
		download += pkg.Size
		installed += pkg.InstalledSize * 1024
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d packages, %s to download, %s unpacked\n\n",
		len(packages), progress.FormatBytes(int64(download)), progress.FormatBytes(int64(installed)))
}
