package state

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"mailfeed/internal/model"
)

const (
	FileName   = "metadata.json"
	corruptExt = ".corrupt"
)

// Store persists the watermark and entry history as a single JSON document
// in the output directory. It is the only source of truth; the feed, the
// body files and the search index are all derived from it.
type Store struct {
	dir    string
	logger *log.Logger
}

func New(dir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Store{dir: dir, logger: logger}
}

func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Load returns the persisted watermark and entry history. A missing file
// means nothing has been synchronized yet. An unreadable or unparseable
// file is quarantined with a .corrupt suffix and treated as empty history:
// staying available wins over crashing on a corrupt cache.
func (s *Store) Load() (uint32, []model.Entry, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, nil
		}
		return 0, nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st model.State
	if err := json.Unmarshal(data, &st); err != nil {
		s.quarantine(err)
		return 0, nil, nil
	}

	return st.LastUID, st.Entries, nil
}

// Save fully overwrites the state document. The new document is written to
// a temporary file in the same directory and renamed over the canonical
// path, so a reader never observes a partial write.
func (s *Store) Save(lastUID uint32, entries []model.Entry) error {
	data, err := json.MarshalIndent(model.State{LastUID: lastUID, Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := s.Path() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

func (s *Store) quarantine(cause error) {
	backup := s.Path() + corruptExt
	if err := os.Rename(s.Path(), backup); err != nil {
		s.logger.Printf("State file is corrupt (%v) and could not be moved aside: %v", cause, err)
		return
	}
	s.logger.Printf("State file is corrupt (%v), moved to %s and starting with empty history", cause, backup)
}
