// Package store persists captured screens to a YAML file.
//
// Each screen is kept under a unique name made of word characters only, so
// names can double as identifiers in scripts and test fixtures.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/timvw/screen-patrol/internal/model"
)

var (
	// ErrInvalidName is returned for screen names with non-word characters.
	ErrInvalidName = errors.New("screen name may only contain letters, digits and _")
	// ErrNotFound is returned when no screen is stored under a name.
	ErrNotFound = errors.New("screen not found")
)

var validName = regexp.MustCompile(`^\w+$`)

// file is the on-disk layout.
type file struct {
	Screens map[string]model.Snapshot `yaml:"screens"`
}

// Store holds named screens backed by a YAML file.
type Store struct {
	mu      sync.RWMutex
	path    string
	screens map[string]model.Snapshot
}

// ValidateName checks that name is usable as a screen name.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// New returns an empty store that saves to path.
func New(path string) *Store {
	return &Store{path: path, screens: make(map[string]model.Snapshot)}
}

// Load reads the store at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := New(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading screens file %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing screens file %s: %w", path, err)
	}
	for name, snap := range f.Screens {
		if err := ValidateName(name); err != nil {
			return nil, fmt.Errorf("screens file %s: %w", path, err)
		}
		s.screens[name] = snap
	}
	return s, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string { return s.path }

// Get returns the screen stored under name.
func (s *Store) Get(name string) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.screens[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return &snap, nil
}

// Has reports whether a screen is stored under name.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.screens[name]
	return ok
}

// Put stores snap under name, replacing any previous screen.
func (s *Store) Put(name string, snap *model.Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens[name] = *snap
	return nil
}

// Names returns the stored screen names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.screens))
	for name := range s.screens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the store to its file, replacing it atomically.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(file{Screens: s.screens})
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding screens: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".screens-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}
