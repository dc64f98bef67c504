package loader

import "time"

// State is the lifecycle state of a loaded application.
type State int

// Application states, in the order a successful load visits them.
const (
	StateUnloaded State = iota
	StateHeaderValidated
	StateChecksumValidated
	StateMapped
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateHeaderValidated:
		return "header-validated"
	case StateChecksumValidated:
		return "checksum-validated"
	case StateMapped:
		return "mapped"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Progress describes a state transition of one application.
// Passed to ProgressCallback as the loader advances.
type Progress struct {
	// App is the package name from the header, empty before the header is decoded
	App string

	// State is the state just entered
	State State

	// Bytes is the number of package bytes consumed so far
	Bytes int

	// ElapsedTime is the time since Load or Start began
	ElapsedTime time.Duration
}

// ProgressCallback is called on every state transition.
// Implementations should return quickly to avoid blocking the loader.
//
// Example:
//
//	l, _ := loader.New(alloc, table, exec,
//	    loader.WithProgressCallback(func(p loader.Progress) {
//	        fmt.Printf("%s: %s\n", p.App, p.State)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the loader.
// This allows integration with any logging framework.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
