package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/reroll/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS history_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	entry_id   TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	payload    TEXT    NOT NULL,
	UNIQUE (session_id, entry_id)
);
CREATE INDEX IF NOT EXISTS history_entries_session ON history_entries (session_id, seq);
`

// Store implements ports.HistoryStore on a SQLite database.
// Entries are stored as JSON payloads ordered by insertion.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a history store at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; SQLite serializes them anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append inserts the entry at the end of its session.
func (s *Store) Append(ctx context.Context, entry *domain.Entry) error {
	if entry.SessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO history_entries (session_id, entry_id, created_at, payload)
VALUES (?, ?, ?, ?)
`,
		entry.SessionID,
		entry.ID,
		entry.CreatedAt.UTC().UnixMilli(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// Get retrieves one entry.
func (s *Store) Get(ctx context.Context, sessionID, entryID string) (*domain.Entry, error) {
	var payload string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload FROM history_entries WHERE session_id = ? AND entry_id = ?`,
		sessionID, entryID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return decode(payload)
}

// List returns the session's entries, oldest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]*domain.Entry, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT payload FROM history_entries WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e, err := decode(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return entries, nil
}

// Trim deletes all but the newest keep entries of the session.
func (s *Store) Trim(ctx context.Context, sessionID string, keep int) error {
	if keep < 0 {
		return nil
	}
	_, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM history_entries
WHERE session_id = ? AND seq NOT IN (
	SELECT seq FROM history_entries WHERE session_id = ? ORDER BY seq DESC LIMIT ?
)
`, sessionID, sessionID, keep)
	if err != nil {
		return fmt.Errorf("trim session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM history_entries WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sessions lists the sessions with history.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT DISTINCT session_id FROM history_entries ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

func decode(payload string) (*domain.Entry, error) {
	var e domain.Entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &e, nil
}
