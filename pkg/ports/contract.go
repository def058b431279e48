package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/reroll/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractPrompt builds "a {red|blue} cat" with the given selection.
func contractPrompt(selected int) *domain.Prompt {
	option := func(text string) *domain.Prompt {
		return &domain.Prompt{Source: text, Parts: []*domain.Part{{Text: text}}}
	}
	return &domain.Prompt{
		Source: "a {red|blue} cat",
		Parts: []*domain.Part{
			{Text: "a "},
			{Choice: &domain.Choice{
				ID:       0,
				Name:     "Colour",
				Selected: selected,
				Options:  []*domain.Prompt{option("red"), option("blue")},
			}},
			{Text: " cat"},
		},
	}
}

func contractEntry(sessionID string, n int) *domain.Entry {
	text := []string{"a red cat", "a blue cat"}[n%2]
	return &domain.Entry{
		ID:        fmt.Sprintf("%s-entry-%d", sessionID, n),
		SessionID: sessionID,
		Action:    domain.ActionGenerate,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, n, 0, time.UTC),
		Text:      text,
		Prompt:    contractPrompt(n % 2),
	}
}

// RunHistoryStoreContract runs a suite of tests to verify that a HistoryStore
// implementation adheres to the interface contract.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Append and Get", func(t *testing.T) {
		entry := contractEntry(sessionID, 0)
		require.NoError(t, store.Append(ctx, entry), "Append should not return error")

		loaded, err := store.Get(ctx, sessionID, entry.ID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, entry.ID, loaded.ID)
		assert.Equal(t, entry.Text, loaded.Text)
		assert.Equal(t, entry.Action, loaded.Action)
		assert.True(t, entry.CreatedAt.Equal(loaded.CreatedAt))
		require.NotNil(t, loaded.Prompt)
		assert.Equal(t, entry.Prompt.Source, loaded.Prompt.Source)
		require.Len(t, loaded.Prompt.Parts, 3)
		assert.Equal(t, 0, loaded.Prompt.Parts[1].Choice.Selected)
		assert.Equal(t, "Colour", loaded.Prompt.Parts[1].Choice.Name)

		require.NoError(t, store.Delete(ctx, sessionID))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+sessionID, "nope")
		assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	})

	t.Run("List Non-Existent", func(t *testing.T) {
		_, err := store.List(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Entries Are Snapshots", func(t *testing.T) {
		entry := contractEntry(sessionID, 0)
		require.NoError(t, store.Append(ctx, entry))
		defer func() { _ = store.Delete(ctx, sessionID) }()

		// Mutating what we appended or loaded must not reach the store.
		entry.Prompt.Parts[1].Choice.Selected = 1
		loaded, err := store.Get(ctx, sessionID, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, loaded.Prompt.Parts[1].Choice.Selected)

		loaded.Prompt.Parts[1].Choice.Selected = 1
		again, err := store.Get(ctx, sessionID, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Prompt.Parts[1].Choice.Selected)
	})

	t.Run("List Order", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, store.Append(ctx, contractEntry(sessionID, i)))
		}
		defer func() { _ = store.Delete(ctx, sessionID) }()

		entries, err := store.List(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for i, e := range entries {
			assert.Equal(t, contractEntry(sessionID, i).ID, e.ID, "entries are returned oldest first")
		}
	})

	t.Run("Trim", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Append(ctx, contractEntry(sessionID, i)))
		}
		defer func() { _ = store.Delete(ctx, sessionID) }()

		require.NoError(t, store.Trim(ctx, sessionID, 2))

		entries, err := store.List(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, contractEntry(sessionID, 3).ID, entries[0].ID)
		assert.Equal(t, contractEntry(sessionID, 4).ID, entries[1].ID)

		_, err = store.Get(ctx, sessionID, contractEntry(sessionID, 0).ID)
		assert.ErrorIs(t, err, domain.ErrEntryNotFound, "evicted entries are gone")

		require.NoError(t, store.Trim(ctx, sessionID, 10), "trimming below the limit is a no-op")
		entries, err = store.List(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("TrimToZero", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			require.NoError(t, store.Append(ctx, contractEntry(sessionID, i)))
		}
		defer func() { _ = store.Delete(ctx, sessionID) }()

		require.NoError(t, store.Trim(ctx, sessionID, 0))

		_, err := store.List(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "a session trimmed to nothing is gone")

		sessions, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.NotContains(t, sessions, sessionID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, contractEntry(sessionID, 0)))
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.List(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "List after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "deleting twice is not an error")
	})

	t.Run("Sessions", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Append(ctx, contractEntry(id1, 0)))
		require.NoError(t, store.Append(ctx, contractEntry(id2, 0)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
