package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLoaded is returned when an application with the same name is mapped.
	ErrAlreadyLoaded = errors.New("application already loaded")

	// ErrNotLoaded is returned for operations on an application that is not mapped.
	ErrNotLoaded = errors.New("application not loaded")

	// ErrTableFrozen is returned when registering into a frozen service table.
	ErrTableFrozen = errors.New("service table is frozen")

	// ErrTableFull is returned when the service table has no free entries.
	ErrTableFull = errors.New("service table is full")

	// ErrExceedsBudget is wrapped by the ResourceError for a package whose code
	// is larger than the whole memory budget. Unloading other applications does
	// not help; retrying cannot succeed.
	ErrExceedsBudget = errors.New("package exceeds memory budget")

	// ErrTableNotFrozen is returned by New when given a mutable service table.
	ErrTableNotFrozen = errors.New("service table must be frozen before loading")
)

// ResourceError indicates no slot or memory was available to map an application.
// It is recoverable, the caller may unload another application and retry,
// unless it wraps ErrExceedsBudget.
type ResourceError struct {
	App       string
	Reason    string
	Requested int
	Available int
	Err       error
}

func (e *ResourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot map %s: %s: %v", e.App, e.Reason, e.Err)
	}
	if e.Requested > 0 {
		return fmt.Sprintf("cannot map %s: %s (requested %d bytes, %d available)",
			e.App, e.Reason, e.Requested, e.Available)
	}
	return fmt.Sprintf("cannot map %s: %s", e.App, e.Reason)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// FaultError indicates the application faulted while running.
type FaultError struct {
	App   string
	Value interface{}
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("application %s faulted: %v", e.App, e.Value)
}

// StateError indicates an operation was attempted in the wrong state.
type StateError struct {
	App   string
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %s", e.Op, e.App, e.State)
}

// IsResourceError checks if an error is a ResourceError.
func IsResourceError(err error) bool {
	var target *ResourceError
	return errors.As(err, &target)
}

// IsFaultError checks if an error is a FaultError.
func IsFaultError(err error) bool {
	var target *FaultError
	return errors.As(err, &target)
}
