package extract

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ObjectNames returns the file names FindObject accepts for app, in preference order.
func ObjectNames(app string) []string {
	return []string{
		app + "_app.c.obj",
		app + "_app.c.o",
		app + "_app.o",
	}
}

// FindObject searches buildDir recursively for the compiled object of app.
// It returns "" with a nil error when the build directory or the object does
// not exist, which callers treat as "toolchain step not yet run".
func FindObject(buildDir, app string) (string, error) {
	if _, err := os.Stat(buildDir); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	names := ObjectNames(app)
	best := ""
	bestRank := len(names)

	err := filepath.WalkDir(buildDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for rank, name := range names {
			if d.Name() == name && rank < bestRank {
				best, bestRank = path, rank
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return best, nil
}
