package appk

import (
	"errors"
	"fmt"
)

// FormatError indicates a malformed package: truncated input, bad magic,
// an out-of-range entry offset or an unknown checksum algorithm.
type FormatError struct {
	// Field is the header field or region that failed validation
	Field string

	// Reason describes what was wrong
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid package format: %s: %s", e.Field, e.Reason)
}

// IntegrityError indicates that the code blob does not match the header checksum.
type IntegrityError struct {
	Expected uint32
	Actual   uint32
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed: header checksum 0x%08X, computed 0x%08X",
		e.Expected, e.Actual)
}

// IsFormatError returns true if err is or wraps a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsIntegrityError returns true if err is or wraps an IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
