package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	registryFile = "registry.json"
	lockFile     = "registry.lock"
)

// Store persists the registry under a repository's state directory.
type Store struct {
	dir      string
	filePath string
	lockPath string
}

// NewStore creates a store rooted at stateDir, creating the directory
// if needed.
func NewStore(stateDir string) (*Store, error) {
	if stateDir == "" {
		return nil, fmt.Errorf("state directory cannot be empty")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Store{
		dir:      stateDir,
		filePath: filepath.Join(stateDir, registryFile),
		lockPath: filepath.Join(stateDir, lockFile),
	}, nil
}

// Dir returns the state directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads the registry from disk. A missing file yields an empty
// registry with the counter at 1. A present-but-unparsable file is an
// ErrCorruptState: the store never silently discards data.
//
// Load takes no lock; readers tolerate a concurrent writer because the
// registry is replaced atomically via rename.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(), nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if reg.NextID < 1 {
		reg.NextID = 1
	}
	return &reg, nil
}

// WithLock acquires the exclusive cross-process lock, loads the registry,
// invokes op with it, and persists on success. If op returns an error
// nothing is written. Every mutating engine operation is exactly one
// WithLock call.
func (s *Store) WithLock(op func(*Registry) error) error {
	fl := flock.New(s.lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquiring registry lock: %w", err)
	}
	defer fl.Unlock() //nolint:errcheck

	reg, err := s.Load()
	if err != nil {
		return err
	}
	if err := op(reg); err != nil {
		return err
	}
	return s.save(reg)
}

// save writes the registry atomically: temporary file in the same
// directory, then rename over the live file.
func (s *Store) save(reg *Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
