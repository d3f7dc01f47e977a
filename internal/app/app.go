package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"unitydl/internal/config"
	"unitydl/internal/downloader/core"
	apperrors "unitydl/internal/errors"
	"unitydl/internal/errors/logging"
	"unitydl/internal/logger"
	"unitydl/internal/manifest"
	"unitydl/internal/ui"
)

const moduleName = "app"

// HTTPClient is the transport shared by the manifest and file fetchers.
type HTTPClient interface {
	manifest.HTTPClient
	core.HTTPClient
}

type options struct {
	client    HTTPClient
	reporter  core.ProgressReporter
	freeSpace func(dir string) (uint64, bool)
}

// Option customises App construction.
type Option func(*options)

// WithHTTPClient routes every request through client.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithProgressReporter overrides the download progress display, which
// otherwise draws on the console output.
func WithProgressReporter(reporter core.ProgressReporter) Option {
	return func(o *options) {
		o.reporter = reporter
	}
}

// WithFreeSpaceProbe overrides how available disk space is measured.
func WithFreeSpaceProbe(probe func(dir string) (uint64, bool)) Option {
	return func(o *options) {
		o.freeSpace = probe
	}
}

// App fetches the manifests of the requested platforms and downloads every
// release they list, one target at a time.
type App struct {
	outDir    string
	console   *ui.Console
	printer   *ui.Printer
	log       logger.Logger
	manifests *manifest.Fetcher
	files     *core.Fetcher
}

// New wires the manifest and file fetchers for a run writing into outDir.
func New(cfg *config.Config, outDir string, console *ui.Console, printer *ui.Printer, opts ...Option) (*App, error) {
	if console == nil {
		return nil, apperrors.SystemError(apperrors.CodeSystemGeneric, "console must not be nil", nil).
			WithModule(moduleName).
			WithOperation("New")
	}
	if printer == nil {
		printer = ui.NewPrinter(console.Output())
	}

	o := options{client: core.DefaultHTTPClient()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.reporter == nil {
		o.reporter = core.NewConsoleProgressReporter(console.Output())
	}

	fileOpts := []core.Option{
		core.WithHTTPClient(o.client),
		core.WithProgressReporter(o.reporter),
	}
	if o.freeSpace != nil {
		fileOpts = append(fileOpts, core.WithFreeSpaceProbe(o.freeSpace))
	}

	files, err := core.NewFetcher(cfg, console, fileOpts...)
	if err != nil {
		return nil, err
	}

	return &App{
		outDir:    outDir,
		console:   console,
		printer:   printer,
		log:       console.Logger(),
		manifests: manifest.NewFetcher(cfg, outDir, console.Logger(), manifest.WithHTTPClient(o.client)),
		files:     files,
	}, nil
}

// Run fetches manifests for platforms, downloads every release and prints a
// summary. Per-target failures are recorded in the Summary, never returned.
// The error is non-nil only when the output directory cannot be created or
// ctx is cancelled.
func (a *App) Run(ctx context.Context, platforms []config.Platform) (*Summary, error) {
	summary := NewSummary()
	var catalog *manifest.Catalog

	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}
	a.printer.PrintStart(names, a.outDir)

	steps := []Step{
		{Name: "Fetch release manifests", Fn: func(ctx context.Context) error {
			var err error
			catalog, err = a.manifests.Fetch(ctx, platforms)
			return err
		}},
		{Name: "Download releases", Fn: func(ctx context.Context) error {
			return a.downloadAll(ctx, catalog, summary)
		}},
		{Name: "Report summary", Fn: func(context.Context) error {
			a.printer.PrintSummary(summary.Lines(), summary.Transferred)
			return nil
		}},
	}

	err := NewPipeline(a.log, steps, func(step Step, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}).Execute(ctx)
	return summary, err
}

func (a *App) downloadAll(ctx context.Context, catalog *manifest.Catalog, summary *Summary) error {
	for _, rel := range catalog.Releases() {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := filepath.Join(a.outDir, rel.DirName())
		if !a.ensureDir(ctx, dir, summary) {
			continue
		}
		summary.Releases++

		a.printer.PrintSeparator("=", 53)
		a.printer.PrintRelease(rel.DirName(), rel.Size)
		if rel.LTS {
			a.log.Debug("%s is a long-term support release", rel.ID())
		}

		summary.Record(a.files.Fetch(ctx, core.Target{
			Name:         rel.ID(),
			URL:          rel.URL,
			Dir:          dir,
			ExpectedSize: rel.Size,
			Checksum:     rel.Checksum,
		}))

		for _, mod := range rel.Modules {
			if err := ctx.Err(); err != nil {
				return err
			}

			modDir := filepath.Join(dir, mod.Group())
			if !a.ensureDir(ctx, modDir, summary) {
				continue
			}

			a.printer.PrintModule(mod.ID, mod.Name)
			summary.Record(a.files.Fetch(ctx, core.Target{
				Name:         mod.ID,
				URL:          mod.URL,
				Dir:          modDir,
				ExpectedSize: mod.Size,
				Checksum:     mod.Checksum,
			}))
		}
	}

	a.log.Debug("Processed %d targets, %s transferred", summary.Total(), humanize.IBytes(uint64(summary.Transferred)))
	return ctx.Err()
}

func (a *App) ensureDir(ctx context.Context, dir string, summary *Summary) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		appErr := apperrors.SystemError(apperrors.CodeFilesystem, "failed to create directory", err).
			WithModule(moduleName).
			WithOperation("ensureDir").
			WithField("path", dir)
		a.log.Error("Failed to create %s: %s", dir, appErr.Reason())
		logging.Debug(ctx, a.log, "directory creation failed", appErr)
		summary.SkippedDirs++
		return false
	}
	return true
}
