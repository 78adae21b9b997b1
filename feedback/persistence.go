package feedback

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sentimentd/sentimentd/sentiment"
)

const snapshotVersion = 1

type tempFile interface {
	io.Writer
	Sync() error
	Close() error
	Name() string
}

var (
	errNilWriter            = errors.New("feedback: writer is nil")
	errNilReader            = errors.New("feedback: reader is nil")
	errPathNotAbsolute      = errors.New("feedback: snapshot path must be absolute")
	errUnsupportedVersion   = errors.New("feedback: unsupported snapshot version")
	errInvalidSnapshotEntry = errors.New("feedback: invalid snapshot entry")
	createTemp              = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	renameFile              = os.Rename
	removeFile              = os.Remove
)

// snapshotEntry carries the durable part of an Entry. Scores are never
// persisted; machine labels are re-derived from a fresh fit on load.
type snapshotEntry struct {
	ID        string
	Text      string
	Label     sentiment.Category
	Labeled   bool
	CreatedAt time.Time
}

type snapshotState struct {
	Version int
	Entries []snapshotEntry
}

// SaveSnapshot writes the corpus to a writer using gob encoding. Model state
// is deliberately excluded; it is always re-fit from the corpus.
func (s *Store) SaveSnapshot(w io.Writer) error {
	if w == nil {
		return errNilWriter
	}

	s.mu.RLock()
	state := snapshotState{Version: snapshotVersion}
	state.Entries = make([]snapshotEntry, 0, len(s.order))
	for _, id := range s.order {
		entry := s.entries[id]
		state.Entries = append(state.Entries, snapshotEntry{
			ID:        entry.ID,
			Text:      entry.Text,
			Label:     entry.Label,
			Labeled:   entry.Labeled,
			CreatedAt: entry.CreatedAt,
		})
	}
	s.mu.RUnlock()

	if err := gob.NewEncoder(w).Encode(state); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a gob-encoded corpus, replaces all entries, re-fits the
// model from the labeled ones, and re-scores the rest.
func (s *Store) LoadSnapshot(r io.Reader) error {
	if r == nil {
		return errNilReader
	}

	var state snapshotState
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if err := validateSnapshotState(state); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*Entry, len(state.Entries))
	s.order = make([]string, 0, len(state.Entries))
	for _, persisted := range state.Entries {
		s.insertLocked(&Entry{
			ID:        persisted.ID,
			Text:      persisted.Text,
			Label:     persisted.Label,
			Labeled:   persisted.Labeled,
			CreatedAt: persisted.CreatedAt,
		})
	}
	s.refitLocked()
	return nil
}

// SaveSnapshotFile writes the corpus to a file atomically.
func (s *Store) SaveSnapshotFile(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %q", errPathNotAbsolute, path)
	}

	dir := filepath.Dir(path)
	temp, err := createTemp(dir, ".sentimentd-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := temp.Name()
	defer removeFile(tempPath)

	if err := s.SaveSnapshot(temp); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := renameFile(tempPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// LoadSnapshotFile reads a gob-encoded corpus snapshot from a file.
func (s *Store) LoadSnapshotFile(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %q", errPathNotAbsolute, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	return s.LoadSnapshot(f)
}

func validateSnapshotState(state snapshotState) error {
	if state.Version != snapshotVersion {
		return fmt.Errorf("%w: %d", errUnsupportedVersion, state.Version)
	}

	seen := make(map[string]struct{}, len(state.Entries))
	for i, entry := range state.Entries {
		if _, err := uuid.Parse(entry.ID); err != nil {
			return fmt.Errorf("%w %d: bad id %q", errInvalidSnapshotEntry, i, entry.ID)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("%w %d: duplicate id %q", errInvalidSnapshotEntry, i, entry.ID)
		}
		seen[entry.ID] = struct{}{}

		if strings.TrimSpace(entry.Text) == "" {
			return fmt.Errorf("%w %d: empty text", errInvalidSnapshotEntry, i)
		}
		if _, ok := sentiment.ParseCategory(string(entry.Label)); !ok {
			return fmt.Errorf("%w %d: unknown category %q", errInvalidSnapshotEntry, i, entry.Label)
		}
	}
	return nil
}
