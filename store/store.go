package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moffa90/go-appk/appk"
)

// Ext is the file extension of stored packages.
const Ext = ".bin"

var (
	// ErrTooLarge is returned for packages above the store's size limit.
	ErrTooLarge = errors.New("package exceeds storage size limit")

	// ErrNotFound is returned when no package is stored under a name.
	ErrNotFound = errors.New("package not found")

	// ErrInvalidName is returned for names that are empty or contain path elements.
	ErrInvalidName = errors.New("invalid package name")
)

// Entry describes one stored package.
type Entry struct {
	Name        string
	Path        string
	Size        int64
	InstalledAt time.Time

	// Header is the decoded package header, nil if the file is not a package
	Header *appk.Header
}

// Store keeps validated packages as <name>.bin files in a directory.
// A file is only ever replaced atomically, so readers see either the old or
// the new package.
type Store struct {
	dir    string
	config Config
}

// Open returns a Store rooted at dir, creating the directory if needed.
//
// Example:
//
//	s, err := store.Open("/var/lib/appk/apps", store.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	entry, err := s.Save("hello", data)
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store directory cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &Store{dir: dir, config: cfg}, nil
}

// Dir returns the store root.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Ext)
}

// Save verifies data is a well-formed package and stores it under name,
// replacing any previous package with that name.
func (s *Store) Save(name string, data []byte) (*Entry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if int64(len(data)) > s.config.MaxSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", name, len(data), ErrTooLarge)
	}

	pkg, err := appk.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("refusing to store %s: %w", name, err)
	}
	if err := pkg.Verify(); err != nil {
		return nil, fmt.Errorf("refusing to store %s: %w", name, err)
	}

	if err := s.writeAtomic(name, data); err != nil {
		return nil, err
	}

	s.logInfo("saved package", "name", name, "bytes", len(data), "app", pkg.Header.Name)

	return s.Info(name)
}

// Load returns the raw bytes stored under name.
func (s *Store) Load(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path(name))
	if err != nil {
		return nil, s.notFound(name, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if int64(len(data)) > s.config.MaxSize {
		return nil, fmt.Errorf("%s: %w", name, ErrTooLarge)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: stored file is empty", name)
	}
	return data, nil
}

// LoadPackage returns the verified package stored under name.
func (s *Store) LoadPackage(name string) (*appk.Package, error) {
	data, err := s.Load(name)
	if err != nil {
		return nil, err
	}

	pkg, err := appk.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	if err := pkg.Verify(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// Delete removes the package stored under name.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil {
		return s.notFound(name, err)
	}
	s.logInfo("deleted package", "name", name)
	return nil
}

// Exists reports whether a package is stored under name.
func (s *Store) Exists(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Info describes the package stored under name.
func (s *Store) Info(name string) (*Entry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	path := s.Path(name)
	fi, err := os.Stat(path)
	if err != nil {
		return nil, s.notFound(name, err)
	}

	return &Entry{
		Name:        name,
		Path:        path,
		Size:        fi.Size(),
		InstalledAt: fi.ModTime(),
		Header:      readHeader(path),
	}, nil
}

// List returns every stored package sorted by name.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store: %w", err)
	}

	var entries []Entry
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), Ext) || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(de.Name(), Ext)
		if name == "" {
			continue
		}
		info, err := s.Info(name)
		if err != nil {
			continue
		}
		entries = append(entries, *info)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	s.logDebug("listed store", "dir", s.dir, "count", len(entries))
	return entries, nil
}

// FreeSpace returns the bytes available to unprivileged users on the
// filesystem holding the store.
func (s *Store) FreeSpace() (uint64, error) {
	return freeSpace(s.dir)
}

// ValidateName rejects names that could escape the store directory.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

func (s *Store) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}

func (s *Store) notFound(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return err
}

func readHeader(path string) *appk.Header {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, appk.HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil
	}
	h, err := appk.DecodeHeader(buf)
	if err != nil {
		return nil
	}
	return h
}

func (s *Store) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (s *Store) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}
