package extract

import (
	"errors"
	"fmt"
	"strings"
)

// UnsupportedTargetError indicates the extractor has no known-safe return
// encoding for the requested instruction set.
type UnsupportedTargetError struct {
	Target string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("unsupported target %q: no verified return sequence", e.Target)
}

// MachineMismatchError indicates the object was compiled for another architecture.
type MachineMismatchError struct {
	Object   string
	Expected string
	Actual   string
}

func (e *MachineMismatchError) Error() string {
	return fmt.Sprintf("object %s is built for %s, target expects %s",
		e.Object, e.Actual, e.Expected)
}

// IndirectCallError indicates the object references system symbols directly
// instead of calling them through the service-call table.
type IndirectCallError struct {
	Object  string
	Symbols []string
}

func (e *IndirectCallError) Error() string {
	return fmt.Sprintf("object %s references %d external symbol(s) directly: %s",
		e.Object, len(e.Symbols), strings.Join(e.Symbols, ", "))
}

// EntryLayoutError indicates objcopy produced a different image than in-process
// extraction, so the entry offset resolved from the object does not apply to it.
type EntryLayoutError struct {
	Object string
	Symbol string
	Offset uint32
}

func (e *EntryLayoutError) Error() string {
	return fmt.Sprintf("object %s: entry %s at offset %d cannot be located in the objcopy image",
		e.Object, e.Symbol, e.Offset)
}

// ToolError indicates the external objcopy command failed.
type ToolError struct {
	Command string
	Status  int
	Stderr  string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("objcopy command exited with status %d", e.Status)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// IsUnsupportedTarget returns true if err is or wraps an UnsupportedTargetError.
func IsUnsupportedTarget(err error) bool {
	var ute *UnsupportedTargetError
	return errors.As(err, &ute)
}
