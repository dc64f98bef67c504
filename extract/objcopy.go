package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// runObjcopy runs the configured command line through an embedded POSIX shell
// with $OBJ set to the object path and $OUT to a temporary output file.
func runObjcopy(ctx context.Context, command, objPath string) ([]byte, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "objcopy")
	if err != nil {
		return nil, fmt.Errorf("failed to parse objcopy command: %w", err)
	}

	dir, err := os.MkdirTemp("", "appk-objcopy-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	absObj, err := filepath.Abs(objPath)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "code.bin")

	env := append(os.Environ(), "OBJ="+absObj, "OUT="+out)

	var stderr bytes.Buffer
	runner, err := interp.New(
		interp.Dir(filepath.Dir(absObj)),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, io.Discard, &stderr),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return nil, &ToolError{Command: command, Status: int(exitStatus), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("objcopy command failed: %w", err)
	}

	code, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("objcopy produced no output: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("objcopy produced an empty binary")
	}

	return code, nil
}
