package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/reroll/pkg/domain"
)

// Store implements ports.HistoryStore using the local filesystem.
// Each session is one JSON file holding its entries, oldest first.
type Store struct {
	BasePath string

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".reroll/history".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".reroll", "history")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.BasePath, sessionID+".json")
}

// Append adds the entry to its session file.
func (s *Store) Append(ctx context.Context, entry *domain.Entry) error {
	if entry.SessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(entry.SessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	return s.write(entry.SessionID, append(entries, entry))
}

// Get retrieves one entry.
func (s *Store) Get(ctx context.Context, sessionID, entryID string) (*domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	for _, e := range entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

// List returns the session's entries, oldest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]*domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(sessionID)
}

// Trim evicts the oldest entries beyond keep.
func (s *Store) Trim(ctx context.Context, sessionID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if keep < 0 || len(entries) <= keep {
		return nil
	}
	if keep == 0 {
		if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}
	return s.write(sessionID, entries[len(entries)-keep:])
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Sessions returns all sessions with a history file.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	files, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []string
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (s *Store) read(sessionID string) ([]*domain.Entry, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var entries []*domain.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session history: %w", err)
	}
	return entries, nil
}

// write replaces the session file atomically: temp file, fsync, rename.
func (s *Store) write(sessionID string, entries []*domain.Entry) error {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure history directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(sessionID)
	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing session file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to session file: %w", err)
	}
	return nil
}
