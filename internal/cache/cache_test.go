package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborops/harbordesk/internal/models"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "harbordesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("   ")
	require.Error(t, err)
}

func TestThreadSnapshotRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	older := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	threads := []models.Thread{
		{ID: "direct-4", Subject: "Quick sync", Channel: models.ChannelDirect, LastMessageAt: &older},
		{ID: "support-9", Subject: "Refund stuck", Channel: models.ChannelSupport, Pinned: true, LastMessageAt: &newer},
	}
	require.NoError(t, c.SaveThreads(ctx, threads))

	loaded, err := c.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "support-9", loaded[0].ID, "snapshot orders by recency")
	assert.True(t, loaded[0].Pinned)
	assert.Equal(t, "direct-4", loaded[1].ID)

	// A second save replaces, never appends.
	require.NoError(t, c.SaveThreads(ctx, threads[:1]))
	loaded, err = c.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "direct-4", loaded[0].ID)
}

func TestReadMarkers(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	_, err := c.ReadMarker(ctx, "support-9")
	require.ErrorIs(t, err, ErrNotFound)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, c.SaveReadMarker(ctx, "support-9", first))

	got, err := c.ReadMarker(ctx, "support-9")
	require.NoError(t, err)
	assert.True(t, got.Equal(first))

	// Upsert moves the marker forward.
	later := first.Add(time.Hour)
	require.NoError(t, c.SaveReadMarker(ctx, "support-9", later))
	got, err = c.ReadMarker(ctx, "support-9")
	require.NoError(t, err)
	assert.True(t, got.Equal(later))
}

func TestDrafts(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	_, err := c.Draft(ctx, "direct-4")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.SaveDraft(ctx, "direct-4", "half-written reply"))
	body, err := c.Draft(ctx, "direct-4")
	require.NoError(t, err)
	assert.Equal(t, "half-written reply", body)

	require.NoError(t, c.SaveDraft(ctx, "direct-4", "edited reply"))
	body, err = c.Draft(ctx, "direct-4")
	require.NoError(t, err)
	assert.Equal(t, "edited reply", body)

	// Saving a blank body clears the draft.
	require.NoError(t, c.SaveDraft(ctx, "direct-4", "   "))
	_, err = c.Draft(ctx, "direct-4")
	require.ErrorIs(t, err, ErrNotFound)
}
