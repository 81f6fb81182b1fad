package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/debstrap-dev/debstrap/internal/archive"
	"github.com/debstrap-dev/debstrap/internal/chroot"
	"github.com/debstrap-dev/debstrap/internal/deb"
	"github.com/debstrap-dev/debstrap/internal/fetch"
	"github.com/debstrap-dev/debstrap/internal/hooks"
	"github.com/debstrap-dev/debstrap/internal/message"
	"github.com/debstrap-dev/debstrap/internal/progress"
	"github.com/debstrap-dev/debstrap/internal/resolver"
	"github.com/debstrap-dev/debstrap/internal/rootfs"
	"github.com/debstrap-dev/debstrap/internal/variant"
)

// pipeline carries the state threaded through the bootstrap stages.
type pipeline struct {
	opts    Options
	printer *message.Printer
	log     message.Logger

	ws       *Workspace
	hooks    *hooks.Runner
	client   *fetch.Client
	db       *archive.Database
	seed     []archive.Package
	closure  []archive.Package
	buckets  map[string][]archive.Package
	target   string
	mergeUsr bool
	shellFix bool
}

func (p *pipeline) run(ctx context.Context) error {
	if err := p.preflight(ctx); err != nil {
		return err
	}

	ws, err := NewWorkspace(p.opts.WorkspaceOverride)
	if err != nil {
		return err
	}
	p.ws = ws
	defer p.removeWorkspace()

	p.client = fetch.NewClient(fetch.ClientOptions{Timeout: p.opts.HTTPTimeout})
	p.hooks = &hooks.Runner{
		Commands:    p.opts.Hooks,
		Workspace:   ws.Root,
		PackagesDir: ws.PackagesDir(),
		Printer:     p.printer,
	}

	if err := p.buildDatabase(ctx); err != nil {
		return err
	}
	if err := p.buildSeed(); err != nil {
		return err
	}

	switch p.opts.Mode {
	case ModePrintInitialSet:
		p.printSet(p.seed)
		return nil
	case ModePrintBothSets:
		p.printSet(p.seed)
	}

	if err := p.resolve(); err != nil {
		return err
	}
	if p.opts.Mode == ModePrintTargetSet || p.opts.Mode == ModePrintBothSets {
		p.printSet(p.closure)
		return nil
	}

	proceed, err := p.confirm()
	if err != nil {
		return err
	}
	if !proceed {
		p.printer.Step("Aborting.")
		return nil
	}

	if err := p.download(ctx); err != nil {
		return err
	}
	p.hooks.Run(ctx, hooks.Download)

	if p.opts.Mode == ModeDownloadPackages {
		return p.finalizeDownloads()
	}

	if err := p.prepareTarget(); err != nil {
		return err
	}
	if err := p.partition(); err != nil {
		return err
	}
	if err := p.extract(ctx); err != nil {
		return err
	}
	p.hooks.Run(ctx, hooks.Extract)

	if p.opts.Mode == ModeExtractPackages {
		return p.finalizeExtracted()
	}

	if err := p.install(ctx); err != nil {
		return err
	}
	if err := rootfs.ResetMachineID(p.target); err != nil {
		return err
	}
	p.hooks.Run(ctx, hooks.Target)
	p.hooks.Run(ctx, hooks.Done)

	return p.finalize()
}

// archTestFunc reports whether the host can execute binaries for the
// architecture. Overridable for tests.
var archTestFunc = func(ctx context.Context, arch string) error {
	return exec.CommandContext(ctx, "arch-test", arch).Run()
}

func (p *pipeline) preflight(ctx context.Context) error {
	if !p.opts.Skip[SkipArchitectureCheck] {
		if err := p.checkArchitecture(ctx); err != nil {
			return err
		}
	}
	if p.opts.Format == FormatDirectory && !p.opts.Skip[SkipOutputDirectoryCheck] {
		if err := CheckTargetDirectory(p.opts.OutputPath); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) checkArchitecture(ctx context.Context) error {
	arch := p.primaryArch()
	err := archTestFunc(ctx, arch)
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		p.printer.Warnf("arch-test not found, skipping architecture check")
		return nil
	}
	return fmt.Errorf("architecture %s is not executable on this host", arch)
}

func (p *pipeline) removeWorkspace() {
	if p.opts.Skip[SkipWorkspaceRemoval] {
		p.printer.Warnf("workspace removal skipped, %s remains", p.ws.Root)
		return
	}
	if err := p.ws.Remove(); err != nil {
		p.printer.Warnf("removing workspace: %v", err)
	}
}

func (p *pipeline) buildDatabase(ctx context.Context) error {
	status := progress.NewStatus(p.printer.Out())
	status.Begin("Retrieving package indices...")
	fetcher := &fetch.IndexFetcher{
		Client:   p.client,
		ListsDir: p.ws.ListsDir(),
		Printer:  p.printer,
		Log:      p.log,
	}
	indices, err := fetcher.FetchAll(ctx, p.opts.Entries)
	if err != nil {
		return err
	}

	db := archive.NewDatabase()
	for _, index := range indices {
		f, err := os.Open(index.Path)
		if err != nil {
			return fmt.Errorf("reading package index: %w", err)
		}
		packages, err := archive.ParsePackages(f, index.Origin)
		f.Close()
		if err != nil {
			return err
		}
		db.AddAll(packages)
	}
	p.db = db
	status.Done(fmt.Sprintf("Retrieved %d package indices", len(indices)))
	p.log.Debug("package database built", "names", db.Len())
	return nil
}

func (p *pipeline) buildSeed() error {
	sel := p.opts.Selection
	if extra := archive.CaseSpecificPackages(p.primarySuite(), sel.Variant); len(extra) > 0 {
		sel.Include = append(slices.Clone(sel.Include), extra...)
	}
	seed, err := variant.Select(p.db, sel)
	if err != nil {
		return err
	}
	p.seed = seed
	return nil
}

func (p *pipeline) resolve() error {
	status := progress.NewStatus(p.printer.Out())
	status.Begin("Resolving dependencies...")
	closure, err := resolver.Resolve(p.db, p.seed, p.opts.ConsiderRecommends, p.opts.Prohibit)
	if err != nil {
		return err
	}
	p.closure = closure
	status.Done(fmt.Sprintf("Resolved %d packages", len(closure)))
	p.log.Debug("closure resolved", "packages", len(closure))
	return nil
}

func (p *pipeline) printSet(packages []archive.Package) {
	for _, pkg := range packages {
		fmt.Fprintln(p.printer.Out(), pkg.Name)
	}
}

func (p *pipeline) confirm() (bool, error) {
	if p.opts.ShowPackages != nil {
		p.opts.ShowPackages(p.closure)
	}
	switch {
	case p.opts.AssumeYes:
		return true, nil
	case p.opts.AssumeNo:
		return false, nil
	}
	return p.printer.Confirm(p.opts.ConfirmInput, "Do you want to proceed?")
}

func (p *pipeline) download(ctx context.Context) error {
	total := len(p.closure)
	for i, pkg := range p.closure {
		p.printer.Step("(%d/%d) Downloading %s %s", i+1, total, pkg.Name, pkg.Version)
		url := pkg.Origin.URI.URL(pkg.FileName)
		dest := filepath.Join(p.ws.DownloadedDir(), path.Base(pkg.FileName))
		if err := p.client.DownloadFile(ctx, url, dest); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) finalizeDownloads() error {
	if p.opts.Format == FormatDirectory {
		if err := os.MkdirAll(p.opts.OutputPath, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		entries, err := os.ReadDir(p.ws.DownloadedDir())
		if err != nil {
			return err
		}
		for _, entry := range entries {
			src := filepath.Join(p.ws.DownloadedDir(), entry.Name())
			if err := rootfs.MoveFile(src, filepath.Join(p.opts.OutputPath, entry.Name())); err != nil {
				return err
			}
		}
		p.printer.Step("Downloaded %d packages into %s", len(p.closure), p.opts.OutputPath)
		return nil
	}

	out := p.outputPath(rootfs.TarballPrefixPackages)
	if err := rootfs.CreateTarball(p.ws.DownloadedDir(), out); err != nil {
		return err
	}
	p.printer.Step("Created %s", out)
	return nil
}

// outputPath returns the artifact path, generating the dated default
// name when the user supplied none.
func (p *pipeline) outputPath(prefix string) string {
	if p.opts.OutputPath != "" {
		return p.opts.OutputPath
	}
	parts := []string{p.primarySuite(), p.primaryArch(), p.variantLabel()}
	return rootfs.TarballName(prefix, parts, time.Now())
}

func (p *pipeline) prepareTarget() error {
	if p.opts.Format == FormatDirectory {
		p.target = p.opts.OutputPath
	} else {
		p.target = p.ws.TargetDir()
	}
	if err := os.MkdirAll(p.target, 0o755); err != nil {
		return fmt.Errorf("creating target directory: %w", err)
	}
	p.hooks.TargetDir = p.target

	p.mergeUsr = archive.DefaultMergeUsr(p.primarySuite(), p.variantLabel())
	if p.opts.MergeUsr != nil {
		p.mergeUsr = *p.opts.MergeUsr
	}
	if p.mergeUsr {
		p.printer.Step("Merging /usr directories")
		if err := rootfs.MergeUsr(p.target, p.primaryArch()); err != nil {
			return err
		}
	}
	return nil
}

// partition sorts the downloaded .deb files into per-bucket
// directories.
func (p *pipeline) partition() error {
	p.buckets = deb.Partition(p.closure, p.opts.MarkEssential, p.opts.MarkNonEssential)
	for _, bucket := range deb.Buckets {
		packages := p.buckets[bucket]
		if len(packages) == 0 {
			continue
		}
		dir := filepath.Join(p.ws.PackagesDir(), bucket)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating bucket directory: %w", err)
		}
		for _, pkg := range packages {
			name := path.Base(pkg.FileName)
			src := filepath.Join(p.ws.DownloadedDir(), name)
			dst := filepath.Join(dir, name)
			// The same file can be advertised by more than one origin;
			// the first occurrence already moved it.
			if _, err := os.Stat(src); os.IsNotExist(err) {
				if _, err := os.Stat(dst); err == nil {
					continue
				}
			}
			if err := rootfs.MoveFile(src, dst); err != nil {
				return fmt.Errorf("staging %s: %w", name, err)
			}
		}
	}
	return os.Remove(p.ws.DownloadedDir())
}

func (p *pipeline) extract(ctx context.Context) error {
	chosen := deb.Buckets
	if p.opts.Mode != ModeExtractPackages && p.opts.ExtractOnlyEssentials {
		chosen = []string{"essential"}
	}

	var files []string
	for _, bucket := range chosen {
		dir := filepath.Join(p.ws.PackagesDir(), bucket)
		for _, pkg := range p.buckets[bucket] {
			files = append(files, filepath.Join(dir, path.Base(pkg.FileName)))
		}
	}

	total := len(files)
	for i, file := range files {
		p.printer.Step("(%d/%d) Extracting %s", i+1, total, filepath.Base(file))
		if err := deb.ExtractData(ctx, file, p.target, p.opts.ExtractBackend); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) finalizeExtracted() error {
	if p.opts.Format == FormatDirectory {
		p.printer.Step("Extracted %d packages into %s", len(p.closure), p.target)
		return nil
	}
	out := p.outputPath(rootfs.TarballPrefixExtracted)
	if err := rootfs.CreateTarball(p.target, out); err != nil {
		return err
	}
	p.printer.Step("Created %s", out)
	return nil
}

// install completes the target inside the chroot. The cleanup defers
// mirror the acquisition order: mounts release first, then the
// policy-rc.d shim, then start-stop-daemon, then the staged package
// directories.
func (p *pipeline) install(ctx context.Context) error {
	defer p.removeStagedPackages()
	defer p.restoreStartStopDaemon()
	defer p.removePolicyRcD()

	if err := p.seedTarget(); err != nil {
		return err
	}

	if err := chroot.MountKernelFilesystems(p.target); err != nil {
		return err
	}
	unmounted := false
	defer func() {
		if !unmounted {
			if _, err := chroot.UnmountAll(p.target); err != nil {
				p.printer.Warnf("releasing mounts: %v", err)
			}
		}
	}()

	installer := &chroot.Installer{
		Root:        p.target,
		Term:        p.opts.Term,
		Interactive: p.opts.Interactive,
		Color:       p.opts.Color,
		Stdout:      p.printer.Out(),
	}
	for _, bucket := range deb.Buckets {
		if len(p.buckets[bucket]) > 0 {
			p.printer.Step("Installing %s packages", bucket)
			if err := installer.InstallBucket(ctx, bucket); err != nil {
				return err
			}
		}
		if bucket == "essential" {
			p.hooks.Run(ctx, hooks.Essential)
		}
	}
	if p.shellFix {
		if err := installer.FixShellAlternatives(ctx); err != nil {
			return err
		}
	}

	n, err := chroot.UnmountAll(p.target)
	if err != nil {
		return err
	}
	if n == 0 {
		p.printer.Warnf("nothing to unmount under %s", p.target)
	}
	unmounted = true
	return nil
}

// seedTarget performs the pre-install steps: dpkg bookkeeping, base
// configuration files, the apt sources list, the temporary shims and
// the interpreter fallback links, then stages the package buckets
// inside the target.
func (p *pipeline) seedTarget() error {
	p.printer.Step("Configuring target system")
	if err := rootfs.WriteDpkgBookkeeping(p.target, p.architectures()); err != nil {
		return err
	}
	if err := rootfs.WriteBaseFiles(p.target); err != nil {
		return err
	}
	if p.hasPackage("apt") {
		format := archive.DefaultSourcesListFormat(p.primarySuite())
		if err := rootfs.WriteAptSources(p.target, p.opts.Entries, format); err != nil {
			return err
		}
	}
	if !p.mergeUsr && !archive.IsSplitUsrSupported(p.primarySuite()) {
		p.printer.Warnf("split /usr is unsupported on %s", p.primarySuite())
		if err := rootfs.WriteSplitUsrWarning(p.target); err != nil {
			return err
		}
	}
	if err := rootfs.InstallPolicyRcD(p.target); err != nil {
		return err
	}
	if err := rootfs.DivertStartStopDaemon(p.target); err != nil {
		return err
	}
	if !p.hasPackage("dash") {
		if err := rootfs.LinkShellFallback(p.target); err != nil {
			return err
		}
		p.shellFix = true
	}
	if err := rootfs.LinkAwk(p.target); err != nil {
		return err
	}
	return p.stagePackages()
}

// stagePackages moves the partitioned bucket directories into the
// target so dpkg can reach them at /packages/<bucket> from inside the
// chroot.
func (p *pipeline) stagePackages() error {
	dest := filepath.Join(p.target, "packages")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("staging packages: %w", err)
	}
	for _, bucket := range deb.Buckets {
		src := filepath.Join(p.ws.PackagesDir(), bucket)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := rootfs.MoveDir(src, filepath.Join(dest, bucket)); err != nil {
			return fmt.Errorf("staging %s packages: %w", bucket, err)
		}
	}
	p.hooks.PackagesDir = dest
	return nil
}

func (p *pipeline) removeStagedPackages() {
	if p.opts.Skip[SkipPackagesRemoval] {
		p.printer.Warnf("packages removal skipped, %s remains", filepath.Join(p.target, "packages"))
		return
	}
	if err := rootfs.RemovePackagesDir(p.target); err != nil {
		p.printer.Warnf("removing staged packages: %v", err)
	}
}

func (p *pipeline) removePolicyRcD() {
	if err := rootfs.RemovePolicyRcD(p.target); err != nil {
		p.printer.Warnf("removing policy-rc.d: %v", err)
	}
}

func (p *pipeline) restoreStartStopDaemon() {
	if err := rootfs.RestoreStartStopDaemon(p.target); err != nil {
		p.printer.Warnf("restoring start-stop-daemon: %v", err)
	}
}

func (p *pipeline) finalize() error {
	if p.opts.Format == FormatDirectory {
		p.printer.Step("Bootstrap complete in %s", p.target)
		return nil
	}
	out := p.outputPath("")
	if err := rootfs.CreateTarball(p.target, out); err != nil {
		return err
	}
	p.printer.Step("Bootstrap complete, wrote %s", out)
	return nil
}

func (p *pipeline) primarySuite() string { return p.opts.Entries[0].Suites[0] }

func (p *pipeline) primaryArch() string { return p.opts.Entries[0].Architectures[0] }

func (p *pipeline) variantLabel() string { return p.opts.Selection.Variant }

// architectures returns every architecture across all entries, first
// occurrence order preserved.
func (p *pipeline) architectures() []string {
	var all []string
	for _, entry := range p.opts.Entries {
		for _, arch := range entry.Architectures {
			if !slices.Contains(all, arch) {
				all = append(all, arch)
			}
		}
	}
	return all
}

func (p *pipeline) hasPackage(name string) bool {
	for _, pkg := range p.closure {
		if pkg.Name == name {
			return true
		}
	}
	return false
}
