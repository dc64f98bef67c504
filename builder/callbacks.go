package builder

// Event phases reported to an EventCallback.
const (
	PhaseStarted = "started"
	PhaseBuilt   = "built"
	PhaseSkipped = "skipped"
)

// Event describes a step in one application's build.
type Event struct {
	// App is the application directory name
	App string

	// Phase is one of PhaseStarted, PhaseBuilt or PhaseSkipped
	Phase string

	// Result is set when Phase is PhaseBuilt
	Result *AppResult

	// Err is set when Phase is PhaseSkipped
	Err error
}

// EventCallback observes build events. BuildAll invokes it from worker
// goroutines, so implementations must be safe for concurrent use.
//
// Example:
//
//	p := builder.NewPipeline(ex,
//	    builder.WithEventCallback(func(e builder.Event) {
//	        fmt.Printf("[%s] %s\n", e.Phase, e.App)
//	    }),
//	)
type EventCallback func(Event)

// Logger is an optional logging interface, compatible with the other packages
// of this module.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
