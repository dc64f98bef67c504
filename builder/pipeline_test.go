package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/moffa90/go-appk/appk"
	"github.com/moffa90/go-appk/extract"
	"github.com/moffa90/go-appk/manifest"
)

// MockLogger records log calls for testing.
type MockLogger struct {
	mu       sync.Mutex
	warnings []string
	infos    []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *MockLogger) Warn(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {}

// writeApp creates <apps>/<name>/<name>_app.c with the given source.
// An empty source skips creating the file.
func writeApp(t *testing.T, appsDir, name, source string) {
	t.Helper()

	dir := filepath.Join(appsDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if source == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name+"_app.c"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, string, string) {
	t.Helper()

	root := t.TempDir()
	apps := filepath.Join(root, "apps")
	out := filepath.Join(root, "out")
	if err := os.MkdirAll(apps, 0o755); err != nil {
		t.Fatal(err)
	}

	opts = append([]Option{
		WithAppsDir(apps),
		WithBuildDir(filepath.Join(root, "build")),
		WithOutputDir(out),
	}, opts...)

	return NewPipeline(extract.New(extract.Xtensa), opts...), apps, out
}

const helloSource = `#include "app_api.h"

void hello_app_entry(const app_services_t *svc) {
    svc->log("hello");
}
`

func TestBuildAppWithoutManifest(t *testing.T) {
	p, apps, out := newTestPipeline(t)
	writeApp(t, apps, "hello", helloSource)

	res, err := p.BuildApp(context.Background(), "hello")
	if err != nil {
		t.Fatalf("BuildApp() error = %v", err)
	}

	want := manifest.Metadata{Name: "hello", Version: "1.0.0", Author: "<unknown>"}
	if res.Metadata != want {
		t.Errorf("Metadata = %+v, want %+v", res.Metadata, want)
	}
	if res.Output != filepath.Join(out, "hello.bin") {
		t.Errorf("Output = %q", res.Output)
	}

	pkg, err := appk.Parse(res.Output)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if pkg.Header.Name != want.Name || pkg.Header.Version != want.Version || pkg.Header.Author != want.Author {
		t.Errorf("decoded header = %+v, want %+v", pkg.Header, want)
	}
}

func TestBuildAppFallback(t *testing.T) {
	p, apps, _ := newTestPipeline(t)
	writeApp(t, apps, "echo", helloSource)

	res, err := p.BuildApp(context.Background(), "echo")
	if err != nil {
		t.Fatalf("BuildApp() error = %v", err)
	}
	if !res.Blob.Fallback() {
		t.Errorf("Method = %v, want fallback", res.Blob.Method)
	}

	pkg, err := appk.Parse(res.Output)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := pkg.Verify(); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if pkg.Header.Size != extract.FallbackSize {
		t.Errorf("Size = %d, want %d", pkg.Header.Size, extract.FallbackSize)
	}
	if !bytes.HasPrefix(pkg.Code, extract.Xtensa.Return) {
		t.Errorf("code starts with % X, want % X", pkg.Code[:4], extract.Xtensa.Return)
	}
}

func TestBuildAppWithManifest(t *testing.T) {
	p, apps, _ := newTestPipeline(t)
	writeApp(t, apps, "greeter", `
const app_manifest_t greeter_app_manifest = {
    .name = "Greeter",
    .version = "0.3.1",
    .author = "Lab Team",
};
`)

	res, err := p.BuildApp(context.Background(), "greeter")
	if err != nil {
		t.Fatalf("BuildApp() error = %v", err)
	}

	want := manifest.Metadata{Name: "Greeter", Version: "0.3.1", Author: "Lab Team"}
	if res.Metadata != want {
		t.Errorf("Metadata = %+v, want %+v", res.Metadata, want)
	}
}

func TestBuildAppBrokenManifestWarns(t *testing.T) {
	logger := &MockLogger{}
	p, apps, _ := newTestPipeline(t, WithLogger(logger))
	writeApp(t, apps, "odd", "const app_manifest_t odd_app_manifest = { 0 };\n")

	res, err := p.BuildApp(context.Background(), "odd")
	if err != nil {
		t.Fatalf("BuildApp() error = %v", err)
	}
	if res.Metadata != manifest.Defaults("odd") {
		t.Errorf("Metadata = %+v, want defaults", res.Metadata)
	}

	found := false
	for _, w := range logger.warnings {
		if w == "metadata parse failed" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want metadata parse warning", logger.warnings)
	}
}

func TestBuildAppErrors(t *testing.T) {
	p, apps, _ := newTestPipeline(t)
	writeApp(t, apps, "nosrc", "")

	t.Run("missing app", func(t *testing.T) {
		_, err := p.BuildApp(context.Background(), "ghost")
		var target *AppNotFoundError
		if !errors.As(err, &target) {
			t.Errorf("error = %v, want AppNotFoundError", err)
		}
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := p.BuildApp(context.Background(), "nosrc")
		var target *SourceNotFoundError
		if !errors.As(err, &target) {
			t.Errorf("error = %v, want SourceNotFoundError", err)
		}
	})

	for _, name := range []string{"", ".", "..", "../etc", `a\b`} {
		t.Run(fmt.Sprintf("invalid name %q", name), func(t *testing.T) {
			if _, err := p.BuildApp(context.Background(), name); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildAppCorruptObject(t *testing.T) {
	p, apps, _ := newTestPipeline(t)
	writeApp(t, apps, "bad", helloSource)

	buildDir := p.Config().BuildDir
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(buildDir, "bad_app.c.obj"), []byte("not an elf"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := p.BuildApp(context.Background(), "bad")
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("error = %v, want BuildError", err)
	}
	if be.Stage != "extract" {
		t.Errorf("Stage = %q, want extract", be.Stage)
	}
}

func TestBuildAll(t *testing.T) {
	var (
		mu     sync.Mutex
		events = map[string][]string{}
	)
	p, apps, out := newTestPipeline(t,
		WithWorkers(2),
		WithEventCallback(func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			events[e.App] = append(events[e.App], e.Phase)
		}),
	)

	writeApp(t, apps, "alpha", helloSource)
	writeApp(t, apps, "beta", "")
	writeApp(t, apps, "gamma", helloSource)
	writeApp(t, apps, ".hidden", helloSource)
	if err := os.WriteFile(filepath.Join(apps, "README.md"), []byte("apps"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := p.BuildAll(context.Background())
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}

	if report.Total != 3 {
		t.Errorf("Total = %d, want 3", report.Total)
	}
	if len(report.Built) != 2 {
		t.Fatalf("Built = %d, want 2", len(report.Built))
	}
	if report.Built[0].App != "alpha" || report.Built[1].App != "gamma" {
		t.Errorf("Built order = %s, %s", report.Built[0].App, report.Built[1].App)
	}
	if report.Failed() != 1 || report.Skipped[0].App != "beta" {
		t.Errorf("Skipped = %+v, want [beta]", report.Skipped)
	}
	if report.OK() {
		t.Error("OK() = true with a skipped app")
	}
	if got := report.Summary(); got != "2/3 apps built" {
		t.Errorf("Summary() = %q", got)
	}

	var srcErr *SourceNotFoundError
	if !errors.As(report.Skipped[0].Err, &srcErr) {
		t.Errorf("skip error = %v, want SourceNotFoundError", report.Skipped[0].Err)
	}

	for _, app := range []string{"alpha", "gamma"} {
		if _, err := os.Stat(filepath.Join(out, app+".bin")); err != nil {
			t.Errorf("%s.bin not written: %v", app, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "beta.bin")); !os.IsNotExist(err) {
		t.Errorf("beta.bin should not exist, stat err = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got := events["beta"]; len(got) != 2 || got[1] != PhaseSkipped {
		t.Errorf("beta events = %v", got)
	}
	if got := events["alpha"]; len(got) != 2 || got[1] != PhaseBuilt {
		t.Errorf("alpha events = %v", got)
	}
	if _, ok := events[".hidden"]; ok {
		t.Error("hidden directory was built")
	}
}

func TestBuildAllDeterministic(t *testing.T) {
	p, apps, out := newTestPipeline(t)
	writeApp(t, apps, "one", helloSource)

	if _, err := p.BuildAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(out, "one.bin"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.BuildAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(out, "one.bin"))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("rebuild produced different bytes")
	}
}

func TestBuildAllMissingAppsDir(t *testing.T) {
	p := NewPipeline(extract.New(extract.Xtensa), WithAppsDir(filepath.Join(t.TempDir(), "nope")))

	if _, err := p.BuildAll(context.Background()); err == nil {
		t.Error("expected error for missing apps directory")
	}
}

func TestBuildAllCancelled(t *testing.T) {
	p, apps, _ := newTestPipeline(t)
	writeApp(t, apps, "one", helloSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.BuildAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if report == nil || report.Failed() != 1 {
		t.Errorf("report = %+v, want one skip", report)
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline(extract.New(extract.RISCV32), WithSourceExt(".cpp"), WithWorkers(0))
	cfg := p.Config()

	if cfg.SourceExt != "cpp" {
		t.Errorf("SourceExt = %q, want cpp", cfg.SourceExt)
	}
	if cfg.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", cfg.Workers)
	}
	if got := p.SourcePath("demo"); got != filepath.Join("components/apps", "demo", "demo_app.cpp") {
		t.Errorf("SourcePath() = %q", got)
	}
}

func TestNewPipelineNilExtractor(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewPipeline(nil)
}
