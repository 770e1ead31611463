/*
Package history persists the set of already-processed announcement
identifiers across restarts.

The persisted form is a single JSON object with one "processed" array of
composite identifier strings. The store is loaded once at startup and saved
with an atomic temp-file rewrite after every committed announcement; it is
only ever touched by the single orchestrating goroutine.
*/
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

type persistedState struct {
	Processed []string `json:"processed"`
}

// Store is the dedup store of processed announcement identifiers.
type Store struct {
	path   string
	ids    []string
	seen   map[string]struct{}
	logger zerolog.Logger
}

// NewStore loads the store from path. A missing file starts a fresh store;
// an unreadable or unparseable file is an error, since silently discarding
// committed identifiers would break the at-most-once intent.
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		seen:   make(map[string]struct{}),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info().Str("path", path).Msg("no processed-announcements file, starting fresh")
			return s, nil
		}
		return nil, fmt.Errorf("failed to read processed-announcements file %s: %w", path, err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("corrupt processed-announcements file %s: %w", path, err)
	}

	for _, id := range state.Processed {
		if _, dup := s.seen[id]; dup {
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}

	logger.Info().Int("count", len(s.ids)).Str("path", path).Msg("loaded processed announcements")
	return s, nil
}

// Contains reports whether the identifier has already been processed.
func (s *Store) Contains(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Add records an identifier in memory. Adding an identifier twice is a
// no-op; call Save to persist.
func (s *Store) Add(id string) {
	if _, dup := s.seen[id]; dup {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

// Save rewrites the persisted file atomically via a temp file and rename.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(persistedState{Processed: s.ids}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal processed announcements: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".processed-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	return nil
}

// Count returns the number of processed identifiers.
func (s *Store) Count() int {
	return len(s.ids)
}
