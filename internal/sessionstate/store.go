package sessionstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trailhook/trailhook/internal/filelock"
	"github.com/trailhook/trailhook/internal/logging"
)

const (
	stateFileName = "session-state.json"
	lockFileName  = "session-state.lock"
)

// Store persists the shared session-state document in the state
// directory, guarded by a file lock against concurrent hook processes.
type Store struct {
	dir    string
	logger *logging.Logger
}

// NewStore creates a Store rooted at the given state directory.
func NewStore(dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{dir: dir, logger: logger}
}

// Load reads the shared document. Missing or corrupt content yields an
// empty state rather than an error.
func (s *Store) Load() (*State, error) {
	fl := filelock.New(filepath.Join(s.dir, lockFileName))
	if err := s.ensureDirAndLock(fl); err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	return s.loadLocked(), nil
}

// Save writes the shared document atomically. The document is re-read
// under the lock first and only the engine-owned keys are replaced, so a
// host-runtime write that landed since our Load is not clobbered.
func (s *Store) Save(state *State) error {
	fl := filelock.New(filepath.Join(s.dir, lockFileName))
	if err := s.ensureDirAndLock(fl); err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	current := s.loadLocked()
	merged := state.clone()
	merged.extra = current.extra

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	target := s.StatePath()
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// StatePath returns the path of the backing document.
func (s *Store) StatePath() string {
	return filepath.Join(s.dir, stateFileName)
}

func (s *Store) ensureDirAndLock(fl *filelock.FileLock) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	return nil
}

func (s *Store) loadLocked() *State {
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read session state", "error", err.Error())
		}
		return New()
	}

	state := New()
	if err := json.Unmarshal(data, state); err != nil {
		s.logger.Warn("session state is not valid JSON, starting empty", "error", err.Error())
		return New()
	}
	return state
}
