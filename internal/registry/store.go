package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/trailhook/trailhook/internal/filelock"
	"github.com/trailhook/trailhook/internal/logging"
)

const (
	stateFileName = "agents.json"
	lockFileName  = "agents.lock"
)

// Store persists the active-agent registry as a JSON file in a state
// directory. Every mutation is a full read-modify-write executed under an
// exclusive file lock, so concurrent hook processes mutating different
// agents merge rather than overwrite each other.
type Store struct {
	dir    string
	logger *logging.Logger
}

// NewStore creates a Store rooted at the given state directory. The
// directory is created on first mutation if it does not exist.
func NewStore(dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{dir: dir, logger: logger}
}

// Register inserts or overwrites the entry keyed by its agent ID and
// persists the registry. Registering the same ID twice is not an error;
// last write wins, which keeps retried spawn notifications idempotent.
func (s *Store) Register(entry Entry) error {
	fl := filelock.New(filepath.Join(s.dir, lockFileName))
	if err := s.ensureDirAndLock(fl); err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	state := s.loadLocked()
	state.Agents[entry.AgentID] = entry
	return s.persistLocked(state)
}

// Pop atomically removes and returns the entry for agentID, or nil if no
// such entry exists. A missing entry is a normal outcome ("already gone"),
// not an error: the agent may have been evicted by a staleness sweep or
// never registered at all.
func (s *Store) Pop(agentID string) (*Entry, error) {
	fl := filelock.New(filepath.Join(s.dir, lockFileName))
	if err := s.ensureDirAndLock(fl); err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	state := s.loadLocked()
	entry, ok := state.Agents[agentID]
	if !ok {
		return nil, nil
	}

	delete(state.Agents, agentID)
	if err := s.persistLocked(state); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CleanupStale removes every entry whose StartedAt is older than maxAge
// and returns how many were removed. The registry is persisted only when
// something was actually evicted. Racing a concurrent Pop is acceptable:
// whichever side wins, the entry is removed exactly once.
func (s *Store) CleanupStale(maxAge time.Duration) (int, error) {
	fl := filelock.New(filepath.Join(s.dir, lockFileName))
	if err := s.ensureDirAndLock(fl); err != nil {
		return 0, err
	}
	defer func() { _ = fl.Unlock() }()

	state := s.loadLocked()
	cutoff := time.Now().Add(-maxAge)

	removed := 0
	for id, entry := range state.Agents {
		if entry.StartedAt.Before(cutoff) {
			s.logger.Debug("evicting stale agent",
				"agent_id", id,
				"started_at", entry.StartedAt,
				"max_age", maxAge.String())
			delete(state.Agents, id)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.persistLocked(state); err != nil {
		return 0, err
	}
	return removed, nil
}

// Snapshot returns a copy of the current registry state for read-only
// inspection (the status command).
func (s *Store) Snapshot() (*State, error) {
	fl := filelock.New(filepath.Join(s.dir, lockFileName))
	if err := s.ensureDirAndLock(fl); err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	return s.loadLocked(), nil
}

// StatePath returns the path of the backing registry file.
func (s *Store) StatePath() string {
	return filepath.Join(s.dir, stateFileName)
}

// ensureDirAndLock creates the state directory if needed and acquires the
// exclusive lock.
func (s *Store) ensureDirAndLock(fl *filelock.FileLock) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	return nil
}

// loadLocked reads the registry file while the lock is held. A missing
// file yields an empty state; corrupt or wrong-shape content is discarded
// with a warning rather than propagated, so a damaged registry self-heals
// on the next mutation.
func (s *Store) loadLocked() *State {
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read registry file", "error", err.Error())
		}
		return newState()
	}

	// Shape check: top-level object whose "agents" field is an object of
	// entries. Anything else is treated as corrupt.
	var raw struct {
		Agents      json.RawMessage `json:"agents"`
		LastUpdated time.Time       `json:"last_updated"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("registry file is not valid JSON, starting empty", "error", err.Error())
		return newState()
	}

	state := newState()
	state.LastUpdated = raw.LastUpdated
	if len(raw.Agents) == 0 || string(raw.Agents) == "null" {
		return state
	}
	if err := json.Unmarshal(raw.Agents, &state.Agents); err != nil {
		s.logger.Warn("registry file has unexpected shape, starting empty", "error", err.Error())
		return newState()
	}
	if state.Agents == nil {
		state.Agents = make(map[string]Entry)
	}
	return state
}

// persistLocked writes the registry atomically while the lock is held:
// data goes to a temporary file first, then is renamed into place.
func (s *Store) persistLocked(state *State) error {
	state.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry state: %w", err)
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
