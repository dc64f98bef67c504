package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/maps"

	"github.com/moffa90/go-appk/appk"
)

// App is an application owned by a Loader.
type App struct {
	// Header is the validated package header
	Header appk.Header

	region   Region
	base     uintptr
	state    atomic.Int32
	cancel   context.CancelFunc
	done     chan struct{}
	loadedAt time.Time
}

// Name returns the application name from the header.
func (a *App) Name() string { return a.Header.Name }

// State returns the current lifecycle state.
func (a *App) State() State { return State(a.state.Load()) }

// Base returns the address the code was mapped at.
func (a *App) Base() uintptr { return a.base }

// EntryAddress returns the absolute entry address, base plus entry offset.
func (a *App) EntryAddress() uintptr { return a.base + uintptr(a.Header.EntryOffset) }

// LoadedAt returns when the application was mapped.
func (a *App) LoadedAt() time.Time { return a.loadedAt }

// Done is closed once the application is back in StateUnloaded.
func (a *App) Done() <-chan struct{} { return a.done }

func (a *App) setState(s State) { a.state.Store(int32(s)) }

// Usage reports slot and memory consumption.
type Usage struct {
	Apps    int
	MaxApps int
	Bytes   int
	Budget  int
}

// Loader verifies packages, maps them into executable regions and runs them.
// It models the resident application manager: a bounded set of slots, a
// memory budget and a single frozen service table shared by every app.
//
// Loader is safe for concurrent use.
type Loader struct {
	alloc  Allocator
	table  *ServiceTable
	exec   Executor
	config Config

	mu   sync.Mutex
	apps map[string]*App
	used int
}

// New creates a Loader. The service table must already be frozen.
//
// Example:
//
//	table, _ := loader.NewStandardTable(resolve)
//	l, err := loader.New(loader.DefaultAllocator(), table, myExecutor,
//	    loader.WithMaxApps(8),
//	)
func New(alloc Allocator, table *ServiceTable, exec Executor, opts ...Option) (*Loader, error) {
	if alloc == nil {
		panic("allocator cannot be nil")
	}
	if table == nil {
		panic("service table cannot be nil")
	}
	if exec == nil {
		panic("executor cannot be nil")
	}
	if !table.Frozen() {
		return nil, ErrTableNotFrozen
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Loader{
		alloc:  alloc,
		table:  table,
		exec:   exec,
		config: cfg,
		apps:   make(map[string]*App),
	}, nil
}

// Table returns the shared service table.
func (l *Loader) Table() *ServiceTable {
	return l.table
}

// Load reads one package from r and takes it to StateMapped:
//  1. Read and decode the 128-byte header (FormatError on bad magic or truncation)
//  2. Read header.size code bytes and verify the checksum (IntegrityError)
//  3. Reserve a slot and map the code (ResourceError when none is available)
//
// A package rejected at any step leaves nothing allocated. Only the bytes the
// header declares are consumed from r.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*App, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 1: header
	var raw [appk.HeaderSize]byte
	if n, err := io.ReadFull(r, raw[:]); err != nil {
		if isShortRead(err) {
			return nil, l.reject("", &appk.FormatError{
				Field:  "header",
				Reason: fmt.Sprintf("truncated: got %d of %d bytes", n, appk.HeaderSize),
			})
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	h, err := appk.DecodeHeader(raw[:])
	if err != nil {
		return nil, l.reject("", err)
	}
	if err := l.checkHeader(h); err != nil {
		return nil, l.reject(h.Name, err)
	}

	l.reportProgress(Progress{
		App:         h.Name,
		State:       StateHeaderValidated,
		Bytes:       appk.HeaderSize,
		ElapsedTime: time.Since(start),
	})

	// Phase 2: code and checksum
	code := make([]byte, h.Size)
	if n, err := io.ReadFull(r, code); err != nil {
		if isShortRead(err) {
			return nil, l.reject(h.Name, &appk.FormatError{
				Field:  "code",
				Reason: fmt.Sprintf("truncated: got %d bytes, header declares %d", n, h.Size),
			})
		}
		return nil, fmt.Errorf("read code: %w", err)
	}

	sum, err := h.ChecksumAlgorithm.Sum(code)
	if err != nil {
		return nil, l.reject(h.Name, err)
	}
	if sum != h.Checksum {
		return nil, l.reject(h.Name, &appk.IntegrityError{Expected: h.Checksum, Actual: sum})
	}

	l.reportProgress(Progress{
		App:         h.Name,
		State:       StateChecksumValidated,
		Bytes:       appk.HeaderSize + len(code),
		ElapsedTime: time.Since(start),
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 3: map
	app, err := l.mapApp(*h, code)
	if err != nil {
		return nil, l.reject(h.Name, err)
	}

	l.reportProgress(Progress{
		App:         h.Name,
		State:       StateMapped,
		Bytes:       appk.HeaderSize + len(code),
		ElapsedTime: time.Since(start),
	})

	l.logInfo("app mapped",
		"app", h.Name,
		"version", h.Version,
		"size", h.Size,
		"base", fmt.Sprintf("0x%X", app.Base()),
	)

	return app, nil
}

// Start transfers control to a mapped application and blocks until its entry
// returns. The entry offset is checked before the call; an offset outside the
// code is a FormatError and the application is unloaded. A panic inside the
// executor is reported as a FaultError. In every case the region is released
// and the application ends in StateUnloaded.
func (l *Loader) Start(ctx context.Context, app *App) error {
	start := time.Now()

	l.mu.Lock()
	if err := l.ownedLocked(app); err != nil {
		l.mu.Unlock()
		return err
	}
	if st := app.State(); st != StateMapped {
		l.mu.Unlock()
		return &StateError{App: app.Name(), Op: "start", State: st}
	}

	h := app.Header
	if h.EntryOffset >= h.Size {
		l.releaseLocked(app)
		l.mu.Unlock()
		return l.reject(h.Name, &appk.FormatError{
			Field:  "entry offset",
			Reason: fmt.Sprintf("offset %d is outside code blob of %d bytes", h.EntryOffset, h.Size),
		})
	}

	runCtx, cancel := context.WithCancel(ctx)
	app.cancel = cancel
	app.setState(StateRunning)

	call := Call{
		App:    h.Name,
		Entry:  app.EntryAddress(),
		Offset: h.EntryOffset,
		Code:   app.region.Bytes(),
		Table:  l.table,
	}
	l.mu.Unlock()

	l.reportProgress(Progress{App: h.Name, State: StateRunning, ElapsedTime: time.Since(start)})
	l.logDebug("entering app", "app", h.Name, "entry", fmt.Sprintf("0x%X", call.Entry))

	err := l.execute(runCtx, call)
	cancel()

	l.mu.Lock()
	l.releaseLocked(app)
	l.mu.Unlock()

	l.reportProgress(Progress{App: h.Name, State: StateUnloaded, ElapsedTime: time.Since(start)})

	if err != nil {
		var fault *FaultError
		if errors.As(err, &fault) {
			l.logError("app faulted", "app", h.Name, "fault", fault.Value)
			return err
		}
		l.logWarn("app returned error", "app", h.Name, "err", err)
		return fmt.Errorf("run %s: %w", h.Name, err)
	}

	l.logInfo("app returned", "app", h.Name, "elapsed", time.Since(start))
	return nil
}

// Run loads the package from r and starts it.
func (l *Loader) Run(ctx context.Context, r io.Reader) error {
	app, err := l.Load(ctx, r)
	if err != nil {
		return err
	}
	return l.Start(ctx, app)
}

// Unload releases a mapped application immediately. For a running
// application it cancels the run context; the region is released when the
// entry returns, which the caller can await with app.Done().
func (l *Loader) Unload(app *App) error {
	l.mu.Lock()
	if err := l.ownedLocked(app); err != nil {
		l.mu.Unlock()
		return err
	}

	state := app.State()
	switch state {
	case StateMapped:
		l.releaseLocked(app)
	case StateRunning:
		app.cancel()
	default:
		l.mu.Unlock()
		return &StateError{App: app.Name(), Op: "unload", State: state}
	}
	l.mu.Unlock()

	// Callbacks run without l.mu so they may query the loader.
	if state == StateMapped {
		l.reportProgress(Progress{App: app.Name(), State: StateUnloaded})
		l.logInfo("app unloaded", "app", app.Name())
		return nil
	}
	l.logInfo("unload requested for running app", "app", app.Name())
	return nil
}

// Get returns the mapped or running application with the given name.
func (l *Loader) Get(name string) (*App, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	app, ok := l.apps[name]
	return app, ok
}

// Apps returns all mapped or running applications sorted by name.
func (l *Loader) Apps() []*App {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := slices.Sorted(slices.Values(maps.Keys(l.apps)))
	apps := make([]*App, 0, len(names))
	for _, name := range names {
		apps = append(apps, l.apps[name])
	}
	return apps
}

// Usage returns the current slot and memory consumption.
func (l *Loader) Usage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Usage{
		Apps:    len(l.apps),
		MaxApps: l.config.MaxApps,
		Bytes:   l.used,
		Budget:  l.config.MemoryBudget,
	}
}

// Close unloads every mapped application and requests running ones to stop.
func (l *Loader) Close() error {
	var errs []error
	for _, app := range l.Apps() {
		if err := l.Unload(app); err != nil && !errors.Is(err, ErrNotLoaded) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Loader) checkHeader(h *appk.Header) error {
	if !h.ChecksumAlgorithm.Known() {
		return &appk.FormatError{
			Field:  "checksum algorithm",
			Reason: fmt.Sprintf("unsupported algorithm id 0x%02X", byte(h.ChecksumAlgorithm)),
		}
	}
	if h.Size == 0 {
		return &appk.FormatError{Field: "size", Reason: "code blob is empty"}
	}
	if h.Size > l.config.MaxCodeSize {
		return &appk.FormatError{
			Field:  "size",
			Reason: fmt.Sprintf("%d bytes exceeds limit of %d", h.Size, l.config.MaxCodeSize),
		}
	}
	if h.Name == "" {
		return &appk.FormatError{Field: "name", Reason: "empty"}
	}
	if int64(h.Size) > int64(l.config.MemoryBudget) {
		return &ResourceError{
			App:       h.Name,
			Reason:    "package larger than the memory budget",
			Requested: int(h.Size),
			Available: l.config.MemoryBudget,
			Err:       ErrExceedsBudget,
		}
	}
	return nil
}

func (l *Loader) mapApp(h appk.Header, code []byte) (*App, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.apps[h.Name]; ok {
		return nil, fmt.Errorf("%s: %w", h.Name, ErrAlreadyLoaded)
	}
	if len(l.apps) >= l.config.MaxApps {
		return nil, &ResourceError{
			App:    h.Name,
			Reason: fmt.Sprintf("all %d app slots in use", l.config.MaxApps),
		}
	}
	if avail := l.config.MemoryBudget - l.used; len(code) > avail {
		return nil, &ResourceError{
			App:       h.Name,
			Reason:    "memory budget exhausted",
			Requested: len(code),
			Available: avail,
		}
	}

	region, err := l.alloc.Map(code)
	if err != nil {
		return nil, &ResourceError{App: h.Name, Reason: "allocation failed", Err: err}
	}

	app := &App{
		Header:   h,
		region:   region,
		base:     region.Base(),
		done:     make(chan struct{}),
		loadedAt: time.Now(),
	}
	app.setState(StateMapped)

	l.apps[h.Name] = app
	l.used += len(code)
	return app, nil
}

func (l *Loader) ownedLocked(app *App) error {
	if app == nil {
		return ErrNotLoaded
	}
	if cur, ok := l.apps[app.Name()]; !ok || cur != app {
		return fmt.Errorf("%s: %w", app.Name(), ErrNotLoaded)
	}
	return nil
}

// releaseLocked frees the region and slot of app. l.mu must be held.
func (l *Loader) releaseLocked(app *App) {
	if app.region == nil {
		return
	}
	if err := l.alloc.Release(app.region); err != nil {
		l.logError("failed to release region", "app", app.Name(), "err", err)
	}
	l.used -= int(app.Header.Size)
	delete(l.apps, app.Name())
	app.region = nil
	app.setState(StateUnloaded)
	close(app.done)
}

func (l *Loader) execute(ctx context.Context, call Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{App: call.App, Value: r}
		}
	}()
	return l.exec.Execute(ctx, call)
}

func (l *Loader) reject(name string, err error) error {
	l.logError("package rejected", "app", name, "err", err)
	return err
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// reportProgress calls the progress callback if configured.
func (l *Loader) reportProgress(progress Progress) {
	if l.config.ProgressCallback != nil {
		l.config.ProgressCallback(progress)
	}
}

func (l *Loader) logDebug(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (l *Loader) logInfo(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Info(msg, keysAndValues...)
	}
}

func (l *Loader) logWarn(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Warn(msg, keysAndValues...)
	}
}

func (l *Loader) logError(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Error(msg, keysAndValues...)
	}
}
