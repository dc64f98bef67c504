package cmd

import "fmt"

// Exit statuses of the appk binary.
const (
	// ExitFailure: the command failed, including a single-app build.
	ExitFailure = 1
	// ExitPartial: `build --all` finished but skipped at least one app.
	ExitPartial = 2
)

// ExitError carries the exit status a command wants. Execute unwraps it and
// calls os.Exit; RunE handlers return it instead of exiting themselves so
// commands stay testable.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("appk exited with status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
