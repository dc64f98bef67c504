package manifest

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
)

// Defaults applied when a field is not declared in the source manifest.
const (
	// DefaultVersion is used when the manifest declares no version
	DefaultVersion = "1.0.0"

	// DefaultAuthor is used when the manifest declares no author
	DefaultAuthor = "<unknown>"

	// Marker identifies the manifest declaration block in application source
	Marker = "_app_manifest"
)

var (
	namePattern    = regexp.MustCompile(`\.name\s*=\s*"([^"]+)"`)
	versionPattern = regexp.MustCompile(`\.version\s*=\s*"([^"]+)"`)
	authorPattern  = regexp.MustCompile(`\.author\s*=\s*"([^"]+)"`)
)

// Metadata is the descriptive name/version/author triple of an application.
// It does not affect execution.
type Metadata struct {
	Name    string
	Version string
	Author  string
}

// Defaults returns the metadata used when nothing is declared.
func Defaults(name string) Metadata {
	return Metadata{
		Name:    name,
		Version: DefaultVersion,
		Author:  DefaultAuthor,
	}
}

// String returns "name vVersion by Author".
func (m Metadata) String() string {
	return fmt.Sprintf("%s v%s by %s", m.Name, m.Version, m.Author)
}

// Resolve reads the application source at path and extracts its manifest.
//
// Resolve never fails fatally: the returned Metadata is always usable. A non-nil
// *ParseError is a diagnostic for the caller to report.
//
// Example:
//
//	meta, diag := manifest.Resolve("apps/hello/hello_app.c", "hello")
//	if diag != nil {
//	    logger.Warn("manifest", "err", diag)
//	}
func Resolve(path, fallbackName string) (Metadata, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Defaults(fallbackName), &ParseError{Path: path, Err: err}
	}

	meta, perr := Parse(src, fallbackName)
	if perr != nil {
		perr.Path = path
		return meta, perr
	}
	return meta, nil
}

// Parse extracts the manifest from source text.
// Without a Marker the defaults are returned and no diagnostic is produced.
// A Marker with none of the fields parsable yields defaults plus a *ParseError.
func Parse(src []byte, fallbackName string) (Metadata, *ParseError) {
	meta := Defaults(fallbackName)

	if !bytes.Contains(src, []byte(Marker)) {
		return meta, nil
	}

	found := 0
	if v := firstMatch(namePattern, src); v != "" {
		meta.Name = v
		found++
	}
	if v := firstMatch(versionPattern, src); v != "" {
		meta.Version = v
		found++
	}
	if v := firstMatch(authorPattern, src); v != "" {
		meta.Author = v
		found++
	}

	if found == 0 {
		return meta, &ParseError{
			Err: fmt.Errorf("found %s but no .name, .version or .author field", Marker),
		}
	}

	return meta, nil
}

func firstMatch(re *regexp.Regexp, src []byte) string {
	m := re.FindSubmatch(src)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// ParseError reports a manifest that could not be read or understood.
// It is advisory: metadata falls back to defaults.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("manifest parse: %v (using defaults)", e.Err)
	}
	return fmt.Sprintf("manifest parse %s: %v (using defaults)", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
