package loader

import (
	"context"
	"fmt"
)

// Call describes a transfer of control into a mapped application.
type Call struct {
	// App is the application name
	App string

	// Entry is the absolute entry address (region base + entry offset)
	Entry uintptr

	// Offset is the entry offset within Code
	Offset uint32

	// Code is the mapped code region
	Code []byte

	// Table is the shared service-call table passed as the single entry argument
	Table *ServiceTable
}

// Executor transfers control to an application entry point and returns when
// the entry returns. ctx is cancelled when the application is unloaded while
// running; a cooperative executor should return promptly.
type Executor interface {
	Execute(ctx context.Context, call Call) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, call Call) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, call Call) error {
	return f(ctx, call)
}

// DryRun is an Executor that checks the call is well formed and returns
// without running any code. Useful for validating packages on a host.
var DryRun Executor = ExecutorFunc(func(ctx context.Context, call Call) error {
	if call.Table == nil {
		return fmt.Errorf("%s: no service table", call.App)
	}
	if int(call.Offset) >= len(call.Code) {
		return fmt.Errorf("%s: entry offset %d outside %d bytes", call.App, call.Offset, len(call.Code))
	}
	return ctx.Err()
})
