package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Method records how a blob was produced.
type Method string

const (
	// MethodELF means sections were flattened in-process
	MethodELF Method = "elf"

	// MethodObjcopy means the external objcopy command produced the blob
	MethodObjcopy Method = "objcopy"

	// MethodFallback means no object was available and a return-only blob was emitted
	MethodFallback Method = "fallback"
)

// Blob is the flat, position-independent code+data image of one application.
type Blob struct {
	// Code is the loadable image
	Code []byte

	// EntryOffset is the byte offset of the entry function within Code
	EntryOffset uint32

	// EntrySymbol is the symbol the entry offset was resolved from, if any
	EntrySymbol string

	// Method records which extraction strategy produced Code
	Method Method

	// Object is the source object path ("" for fallback blobs)
	Object string

	// Sections lists the ELF sections copied into Code (ELF method only)
	Sections []Section

	// Undefined lists external symbols the object references directly
	Undefined []string
}

// Fallback reports whether the blob is the degraded-mode placeholder.
func (b *Blob) Fallback() bool {
	return b.Method == MethodFallback
}

// Extractor turns compiled objects into code blobs for one target.
//
// Extractor holds no mutable state and is safe for concurrent use.
type Extractor struct {
	target Target
	config Config
}

// New creates an Extractor for target with the given options.
//
// Example:
//
//	ex := extract.New(extract.Xtensa, extract.WithLogger(logger))
//	blob, err := ex.Extract(ctx, "build/esp-idf/apps/hello_app.c.obj")
func New(target Target, opts ...Option) *Extractor {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Extractor{target: target, config: cfg}
}

// Target returns the extractor's target.
func (e *Extractor) Target() Target {
	return e.target
}

// Extract produces the code blob for the object at objPath.
//
// When objPath is empty or does not exist the toolchain has not run, and the
// documented fallback blob is returned (Method == MethodFallback). A configured
// objcopy command runs first; the object is still read in-process for its
// machine, entry symbol and undefined references. An object that targets
// another machine, or (in strict mode) calls system symbols directly, is an
// error. An object that cannot be parsed is an error unless objcopy handled it.
func (e *Extractor) Extract(ctx context.Context, objPath string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if objPath == "" {
		e.logWarn("object file not found, emitting fallback blob", "target", e.target.Name)
		return e.Fallback()
	}
	if _, err := os.Stat(objPath); errors.Is(err, fs.ErrNotExist) {
		e.logWarn("object file missing, emitting fallback blob", "object", objPath)
		return e.Fallback()
	}

	var tooled []byte
	if e.config.Objcopy != "" {
		code, err := runObjcopy(ctx, e.config.Objcopy, objPath)
		if err != nil {
			e.logWarn("objcopy failed, using in-process extraction", "object", objPath, "err", err)
		} else {
			e.logDebug("objcopy extracted binary", "object", objPath, "bytes", len(code))
			tooled = code
		}
	}

	blob, err := e.extractFile(objPath)
	if err != nil {
		var mm *MachineMismatchError
		if errors.As(err, &mm) {
			return nil, mm
		}
		if tooled == nil {
			return nil, err
		}
		e.logWarn("object not readable in-process, entry offset defaults to 0",
			"object", objPath, "err", err)
		return &Blob{Code: tooled, Method: MethodObjcopy, Object: objPath}, nil
	}

	if len(blob.Undefined) > 0 {
		if e.config.StrictIndirect {
			return nil, &IndirectCallError{Object: objPath, Symbols: blob.Undefined}
		}
		e.logWarn("object references external symbols directly; calls must go through the service table",
			"object", objPath,
			"symbols", blob.Undefined,
		)
	}

	if tooled != nil {
		return objcopyBlob(tooled, blob)
	}

	e.logDebug("extracted object",
		"object", objPath,
		"bytes", len(blob.Code),
		"sections", len(blob.Sections),
		"entry_offset", blob.EntryOffset,
		"entry_symbol", blob.EntrySymbol,
	)

	return blob, nil
}

func (e *Extractor) extractFile(objPath string) (*Blob, error) {
	f, err := os.Open(objPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer func() { _ = f.Close() }()

	blob, err := ExtractELF(f, e.target)
	if err != nil {
		var mm *MachineMismatchError
		if errors.As(err, &mm) {
			mm.Object = objPath
			return nil, mm
		}
		return nil, fmt.Errorf("extract %s: %w", objPath, err)
	}
	blob.Object = objPath
	return blob, nil
}

// objcopyBlob adopts the tool's output, carrying over the entry offset found
// by in-process extraction. The offset is only valid for the tool's layout
// when the two images are identical or the entry is at the very start;
// anything else fails with *EntryLayoutError.
func objcopyBlob(code []byte, elfBlob *Blob) (*Blob, error) {
	out := &Blob{
		Code:        code,
		Method:      MethodObjcopy,
		Object:      elfBlob.Object,
		EntrySymbol: elfBlob.EntrySymbol,
		Undefined:   elfBlob.Undefined,
	}

	switch {
	case bytes.Equal(code, elfBlob.Code):
		out.EntryOffset = elfBlob.EntryOffset
		out.Sections = elfBlob.Sections
	case elfBlob.EntryOffset == 0:
	default:
		return nil, &EntryLayoutError{
			Object: elfBlob.Object,
			Symbol: elfBlob.EntrySymbol,
			Offset: elfBlob.EntryOffset,
		}
	}
	return out, nil
}

// Fallback returns the placeholder blob for the extractor's target.
func (e *Extractor) Fallback() (*Blob, error) {
	code, err := FallbackCode(e.target)
	if err != nil {
		return nil, err
	}
	return &Blob{Code: code, Method: MethodFallback}, nil
}

func (e *Extractor) logDebug(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (e *Extractor) logWarn(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Warn(msg, keysAndValues...)
	}
}
