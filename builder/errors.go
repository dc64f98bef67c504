package builder

import "fmt"

// AppNotFoundError indicates the application directory does not exist.
type AppNotFoundError struct {
	App  string
	Path string
}

func (e *AppNotFoundError) Error() string {
	return fmt.Sprintf("app %q not found in %s", e.App, e.Path)
}

// SourceNotFoundError indicates the application's main source file is missing.
type SourceNotFoundError struct {
	App  string
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source file not found for app %q: %s", e.App, e.Path)
}

// BuildError wraps a failure in one stage of an application build.
type BuildError struct {
	App   string
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %s: %v", e.App, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
