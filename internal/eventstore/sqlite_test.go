package eventstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_AppendAndRecent(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i, slug := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(ctx, RenderEvent{
			Slug:     slug,
			Outcome:  "fresh",
			Cached:   i == 2,
			Duration: 12 * time.Millisecond,
		}))
	}

	events, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Most recent first.
	require.Equal(t, "c", events[0].Slug)
	require.True(t, events[0].Cached)
	require.Equal(t, "b", events[1].Slug)
	require.Equal(t, 12*time.Millisecond, events[0].Duration)
}

func TestSQLiteStore_RecentDefaultLimit(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	events, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), RenderEvent{Slug: "kept", Outcome: "fresh"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "kept", events[0].Slug)
}
