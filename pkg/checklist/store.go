package checklist

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/moghouse/gearsweep/internal/utils"
)

const lockFileSuffix = ".lock"

// Store is the explicit persistence handle for a checklist: one JSON file,
// guarded by a process mutex and a cross-process file lock. All read-modify-
// write-persist cycles go through Mutate, so interleaved toggles cannot
// lose updates.
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// DefaultPath is ~/.gearsweep/checklist.json.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gearsweep", "checklist.json"), nil
}

// NewStore returns a store over the given state file path, or the default
// path when empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("could not resolve state path: %w", err)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve state path: %w", err)
	}
	return &Store{path: abs, lock: flock.New(abs + lockFileSuffix)}, nil
}

func (st *Store) Path() string {
	return st.path
}

// Load reads the persisted state. A missing file is not an error: it
// returns (nil, nil) so callers can distinguish "no checklist yet" from a
// corrupt one, which surfaces the decode error.
func (st *Store) Load() (*State, error) {
	data, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", st.path, err)
	}
	s, err := FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", st.path, err)
	}
	return s, nil
}

// Save stamps UpdatedAt and writes the state atomically (tmp file then
// rename), creating the parent directory if needed.
func (st *Store) Save(s *State) error {
	s.UpdatedAt = time.Now().Format(time.RFC3339)
	data, err := s.ToJSON()
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return err
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, st.path)
}

// Mutate runs fn inside the exclusive critical section: load (or start
// empty), apply, persist. The whole cycle holds both the process mutex and
// the file lock.
func (st *Store) Mutate(fn func(*State) error) (*State, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.acquireFileLock(); err != nil {
		return nil, err
	}
	defer st.lock.Unlock()

	s, err := st.Load()
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = NewState()
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := st.Save(s); err != nil {
		return nil, fmt.Errorf("saving %s: %w", st.path, err)
	}
	return s, nil
}

// Replace persists s as the new state, discarding whatever was there —
// including a corrupt file the normal Mutate path would refuse to load.
func (st *Store) Replace(s *State) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.acquireFileLock(); err != nil {
		return err
	}
	defer st.lock.Unlock()

	if err := st.Save(s); err != nil {
		return fmt.Errorf("saving %s: %w", st.path, err)
	}
	return nil
}

// Clear removes the state file. Absence is fine.
func (st *Store) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := os.Remove(st.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (st *Store) acquireFileLock() error {
	// The lock file lives next to the state file.
	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return err
	}
	locked, err := st.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", st.path, err)
	}
	if !locked {
		utils.Log.Warn("Another gearsweep process is writing the checklist, waiting for it to finish...")
		if err := st.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", st.path, err)
		}
	}
	return nil
}
