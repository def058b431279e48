package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/reroll/internal/logging"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/aretw0/reroll/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLimit is the number of entries kept per session.
const DefaultLimit = 100

// LatestRef resolves to the newest entry of a session.
const LatestRef = "latest"

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager records generations as session history and serializes access per
// session. It uses Reference Counting to garbage collect unused locks.
//
// Stored entries are never modified: reroll, override and revisit each build
// a new prompt from a clone and append it as a new entry.
type Manager struct {
	engine ports.Generator
	store  ports.HistoryStore
	limit  int

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock lives if never released.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLimit caps the entries kept per session; older entries are evicted.
// Zero or less keeps everything.
func WithLimit(n int) Option {
	return func(m *Manager) {
		m.limit = n
	}
}

// WithClock sets the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a history manager over engine and store.
func NewManager(engine ports.Generator, store ports.HistoryStore, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		store:   store,
		limit:   DefaultLimit,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		now:     time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Generate draws a prompt from a random template and records it.
func (m *Manager) Generate(ctx context.Context, sessionID string) (*domain.Entry, error) {
	p, err := m.engine.Generate(ctx)
	if err != nil {
		return nil, err
	}
	return m.Record(ctx, sessionID, domain.ActionGenerate, "", p)
}

// Record appends a prompt produced elsewhere, such as from a chosen template.
func (m *Manager) Record(ctx context.Context, sessionID string, action domain.Action, parentID string, p *domain.Prompt) (*domain.Entry, error) {
	var entry *domain.Entry
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		entry, err = m.append(ctx, sessionID, action, parentID, p)
		return err
	})
	return entry, err
}

// Reroll draws the template of an entry again and records the result.
func (m *Manager) Reroll(ctx context.Context, sessionID, ref string) (*domain.Entry, error) {
	return m.derive(ctx, sessionID, ref, domain.ActionReroll, func(parent *domain.Entry) (*domain.Prompt, error) {
		return m.engine.Reroll(ctx, parent.Prompt)
	})
}

// Override records a copy of an entry with one fragment switched to option.
// The original entry is left untouched.
func (m *Manager) Override(ctx context.Context, sessionID, ref string, fragmentID, option int) (*domain.Entry, error) {
	return m.derive(ctx, sessionID, ref, domain.ActionOverride, func(parent *domain.Entry) (*domain.Prompt, error) {
		return m.engine.Override(ctx, parent.Prompt, fragmentID, option)
	})
}

// Revisit records a copy of an earlier entry as the newest one, rebound to
// the current templates.
func (m *Manager) Revisit(ctx context.Context, sessionID, ref string) (*domain.Entry, error) {
	return m.derive(ctx, sessionID, ref, domain.ActionRevisit, func(parent *domain.Entry) (*domain.Prompt, error) {
		return m.engine.Inherit(ctx, parent.Prompt)
	})
}

func (m *Manager) derive(ctx context.Context, sessionID, ref string, action domain.Action, build func(*domain.Entry) (*domain.Prompt, error)) (*domain.Entry, error) {
	var entry *domain.Entry
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		parent, err := m.resolve(ctx, sessionID, ref)
		if err != nil {
			return err
		}
		p, err := build(parent)
		if err != nil {
			return err
		}
		entry, err = m.append(ctx, sessionID, action, parent.ID, p)
		return err
	})
	return entry, err
}

func (m *Manager) append(ctx context.Context, sessionID string, action domain.Action, parentID string, p *domain.Prompt) (*domain.Entry, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}
	entry := &domain.Entry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ParentID:  parentID,
		Action:    action,
		CreatedAt: m.now().UTC(),
		Text:      m.engine.Compile(p),
		Prompt:    p,
	}
	if err := m.store.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record entry: %w", err)
	}
	if m.limit > 0 {
		if err := m.store.Trim(ctx, sessionID, m.limit); err != nil {
			return nil, fmt.Errorf("failed to evict old entries: %w", err)
		}
	}
	m.logger.Debug("entry recorded", "session_id", sessionID, "entry_id", entry.ID, "action", action)
	return entry, nil
}

// Entry returns one entry. ref is an entry id, a unique id prefix, or "latest".
func (m *Manager) Entry(ctx context.Context, sessionID, ref string) (*domain.Entry, error) {
	return m.resolve(ctx, sessionID, ref)
}

// Latest returns the newest entry of the session.
func (m *Manager) Latest(ctx context.Context, sessionID string) (*domain.Entry, error) {
	return m.resolve(ctx, sessionID, LatestRef)
}

// History returns up to limit of the newest entries, oldest first.
// A limit of zero or less returns everything kept.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]*domain.Entry, error) {
	entries, err := m.store.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Clear deletes the session's history.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// Sessions delegates to the store.
func (m *Manager) Sessions(ctx context.Context) ([]string, error) {
	return m.store.Sessions(ctx)
}

// Store returns the underlying history store.
func (m *Manager) Store() ports.HistoryStore {
	return m.store
}

func (m *Manager) resolve(ctx context.Context, sessionID, ref string) (*domain.Entry, error) {
	if ref == "" || ref == LatestRef {
		entries, err := m.store.List(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return entries[len(entries)-1], nil
	}

	entry, err := m.store.Get(ctx, sessionID, ref)
	if err == nil || !errors.Is(err, domain.ErrEntryNotFound) {
		return entry, err
	}

	entries, err := m.store.List(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, ref)
		}
		return nil, err
	}
	var match *domain.Entry
	for _, e := range entries {
		if strings.HasPrefix(e.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("%w: prefix %q is ambiguous", domain.ErrEntryNotFound, ref)
			}
			match = e
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, ref)
	}
	return match, nil
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
