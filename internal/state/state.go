/*
Package state persists the monitor's dedup history between runs: the ids of
regulations already notified and the timestamp of the last completed check.
*/
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// seenIDCap bounds the persisted history. Ids beyond the cap age out
// oldest-first, which can re-notify a resurfaced item after 500+ newer
// ids accumulate. Accepted trade-off, kept from the original behavior.
const seenIDCap = 500

// State is the single persisted document.
type State struct {
	SeenIDs   []string `json:"seenIds"`
	LastCheck string   `json:"lastCheck"`
}

// Store loads and saves State against a single JSON file. The file is read
// once at run start and written once at run end; a missing file is not an
// error and yields empty state.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads the state file, seeding empty state when the file is absent or
// unreadable. A corrupt file is logged and treated as fresh state rather
// than aborting the run.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = State{SeenIDs: []string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("state file not found, starting fresh", zap.String("path", s.path))
			return
		}
		s.logger.Warn("cannot read state file, starting fresh", zap.String("path", s.path), zap.Error(err))
		return
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("cannot parse state file, starting fresh", zap.String("path", s.path), zap.Error(err))
		return
	}

	if loaded.SeenIDs == nil {
		loaded.SeenIDs = []string{}
	}
	s.state = loaded
	s.logger.Info("state loaded",
		zap.Int("seen_ids", len(s.state.SeenIDs)),
		zap.String("last_check", s.state.LastCheck),
	)
}

// Seen reports whether the id was already notified in a previous run
// (or earlier in this one).
func (s *Store) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seen := range s.state.SeenIDs {
		if seen == id {
			return true
		}
	}
	return false
}

// MarkSeen appends an id to the in-memory history. Nothing touches the file
// until Save.
func (s *Store) MarkSeen(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SeenIDs = append(s.state.SeenIDs, id)
}

// SeenIDs returns a copy of the current history, most recent last.
func (s *Store) SeenIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.state.SeenIDs))
	copy(out, s.state.SeenIDs)
	return out
}

// Save truncates the history to the most recent entries, stamps the check
// time and writes the file.
func (s *Store) Save(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.SeenIDs) > seenIDCap {
		s.state.SeenIDs = s.state.SeenIDs[len(s.state.SeenIDs)-seenIDCap:]
	}
	s.state.LastCheck = now.UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file %s: %w", s.path, err)
	}

	s.logger.Info("state saved",
		zap.String("path", s.path),
		zap.Int("seen_ids", len(s.state.SeenIDs)),
	)
	return nil
}
