package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/reroll/pkg/adapters/sqlite"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/aretw0/reroll/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.HistoryStore = (*sqlite.Store)(nil)

func openStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, _ := openStore(t)
	ports.RunHistoryStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()

	entry := &domain.Entry{
		ID: "e1", SessionID: "s", Action: domain.ActionGenerate,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Text: "x",
		Prompt: &domain.Prompt{Source: "x", Parts: []*domain.Part{{Text: "x"}}},
	}
	require.NoError(t, store.Append(ctx, entry))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "s", "e1")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Text)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteStore_DuplicateEntry(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	entry := &domain.Entry{ID: "e1", SessionID: "s", Prompt: &domain.Prompt{}}
	require.NoError(t, store.Append(ctx, entry))
	assert.Error(t, store.Append(ctx, entry), "entry ids are unique within a session")
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	assert.Error(t, err)
}
