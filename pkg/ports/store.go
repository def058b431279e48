package ports

import (
	"context"

	"github.com/aretw0/reroll/pkg/domain"
)

// HistoryStore persists the generation history of each session.
// Entries are immutable once appended: stores must hand out copies, never
// references into their own state.
type HistoryStore interface {
	// Append adds an entry to the end of its session's history.
	Append(ctx context.Context, entry *domain.Entry) error

	// Get retrieves one entry.
	// Returns domain.ErrEntryNotFound if the session has no such entry.
	Get(ctx context.Context, sessionID, entryID string) (*domain.Entry, error)

	// List returns the session's entries, oldest first.
	// Returns domain.ErrSessionNotFound if the session has no history.
	List(ctx context.Context, sessionID string) ([]*domain.Entry, error)

	// Trim evicts the oldest entries so that at most keep remain.
	Trim(ctx context.Context, sessionID string, keep int) error

	// Delete removes the whole session.
	Delete(ctx context.Context, sessionID string) error

	// Sessions lists the sessions that have history.
	Sessions(ctx context.Context) ([]string, error)
}
