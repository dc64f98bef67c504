package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moffa90/go-appk/extract"
	"github.com/moffa90/go-appk/manifest"
)

// Pipeline turns application source directories plus compiled objects into
// packages. It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	extractor *extract.Extractor
	config    Config
}

// AppResult describes one successfully built application.
type AppResult struct {
	App      string
	Source   string
	Output   string
	Metadata manifest.Metadata
	Blob     *extract.Blob
	Stats    Stats
	Elapsed  time.Duration
}

// Skip records an application that BuildAll could not build.
type Skip struct {
	App string
	Err error
}

// Report summarises a BuildAll run. Built and Skipped are in directory order.
type Report struct {
	Total   int
	Built   []*AppResult
	Skipped []Skip
}

// Failed returns the number of skipped applications.
func (r *Report) Failed() int {
	return len(r.Skipped)
}

// OK reports whether every application was built.
func (r *Report) OK() bool {
	return len(r.Skipped) == 0
}

// Summary returns a one-line description such as "2/3 apps built".
func (r *Report) Summary() string {
	return fmt.Sprintf("%d/%d apps built", len(r.Built), r.Total)
}

// NewPipeline creates a Pipeline that extracts code with ex.
//
// Example:
//
//	ex := extract.New(extract.Xtensa)
//	p := builder.NewPipeline(ex,
//	    builder.WithAppsDir("components/apps"),
//	    builder.WithBuildDir("build"),
//	)
func NewPipeline(ex *extract.Extractor, opts ...Option) *Pipeline {
	if ex == nil {
		panic("extractor cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Pipeline{
		extractor: ex,
		config:    cfg,
	}
}

// Config returns the effective pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// SourcePath returns the main source path expected for app.
func (p *Pipeline) SourcePath(app string) string {
	return filepath.Join(p.config.AppsDir, app, app+"_app."+p.config.SourceExt)
}

// BuildApp builds one application:
//  1. Check the application directory and main source exist
//  2. Resolve metadata from the source manifest (defaults on any problem)
//  3. Locate the compiled object and extract its code blob
//  4. Assemble the package and write it to OutputDir/<app>.bin
func (p *Pipeline) BuildApp(ctx context.Context, app string) (*AppResult, error) {
	start := time.Now()

	if err := validateAppName(app); err != nil {
		return nil, err
	}

	appDir := filepath.Join(p.config.AppsDir, app)
	if info, err := os.Stat(appDir); err != nil || !info.IsDir() {
		return nil, &AppNotFoundError{App: app, Path: p.config.AppsDir}
	}

	src := p.SourcePath(app)
	if info, err := os.Stat(src); err != nil || info.IsDir() {
		return nil, &SourceNotFoundError{App: app, Path: src}
	}

	meta, diag := manifest.Resolve(src, app)
	if diag != nil {
		p.logWarn("metadata parse failed", "app", app, "err", diag)
	}
	p.logDebug("resolved metadata", "app", app, "metadata", meta.String())

	obj, err := extract.FindObject(p.config.BuildDir, app)
	if err != nil {
		return nil, &BuildError{App: app, Stage: "locate object", Err: err}
	}

	blob, err := p.extractor.Extract(ctx, obj)
	if err != nil {
		return nil, &BuildError{App: app, Stage: "extract", Err: err}
	}

	res, err := Build(meta, blob.Code, blob.EntryOffset)
	if err != nil {
		return nil, &BuildError{App: app, Stage: "assemble", Err: err}
	}

	out, err := WritePackage(p.config.OutputDir, app, res.Package)
	if err != nil {
		return nil, &BuildError{App: app, Stage: "write", Err: err}
	}

	result := &AppResult{
		App:      app,
		Source:   src,
		Output:   out,
		Metadata: meta,
		Blob:     blob,
		Stats:    res.Stats,
		Elapsed:  time.Since(start),
	}

	p.logInfo("built app",
		"app", app,
		"output", out,
		"method", blob.Method,
		"code_bytes", res.Stats.CodeSize,
		"total_bytes", res.Stats.TotalSize,
		"checksum", fmt.Sprintf("0x%08X", res.Stats.Checksum),
	)

	return result, nil
}

// BuildAll builds every application directory under AppsDir, using up to
// Workers concurrent builds. A failing application is recorded in the report
// and does not stop the others. The returned error is non-nil only when the
// application directory cannot be listed or ctx is cancelled.
func (p *Pipeline) BuildAll(ctx context.Context) (*Report, error) {
	apps, err := ListApps(p.config.AppsDir)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		result *AppResult
		err    error
	}
	outcomes := make([]outcome, len(apps))

	var g errgroup.Group
	g.SetLimit(p.config.Workers)

	for i, app := range apps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}

			p.emit(Event{App: app, Phase: PhaseStarted})

			res, err := p.BuildApp(ctx, app)
			outcomes[i] = outcome{result: res, err: err}

			if err != nil {
				p.logWarn("skipping app", "app", app, "err", err)
				p.emit(Event{App: app, Phase: PhaseSkipped, Err: err})
				return nil
			}
			p.emit(Event{App: app, Phase: PhaseBuilt, Result: res})
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Total: len(apps)}
	for i, o := range outcomes {
		if o.err != nil {
			report.Skipped = append(report.Skipped, Skip{App: apps[i], Err: o.err})
			continue
		}
		report.Built = append(report.Built, o.result)
	}

	p.logInfo("build complete", "built", len(report.Built), "skipped", report.Failed(), "total", report.Total)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// ListApps returns the non-hidden subdirectories of appsDir in sorted order.
func ListApps(appsDir string) ([]string, error) {
	entries, err := os.ReadDir(appsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("apps directory not found: %s", appsDir)
		}
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	var apps []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		apps = append(apps, entry.Name())
	}
	return apps, nil
}

func validateAppName(app string) error {
	if app == "" || app == "." || app == ".." || strings.ContainsAny(app, `/\`) {
		return fmt.Errorf("invalid app name %q", app)
	}
	return nil
}

func (p *Pipeline) emit(e Event) {
	if p.config.EventCallback != nil {
		p.config.EventCallback(e)
	}
}

func (p *Pipeline) logDebug(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (p *Pipeline) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}

func (p *Pipeline) logWarn(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Warn(msg, keysAndValues...)
	}
}
