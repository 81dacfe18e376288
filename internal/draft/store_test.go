package draft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decidelog/internal/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	d := domain.Draft{
		Title:    "Switch CI provider",
		Category: domain.CategoryTech,
		Decision: "Move to hosted runners",
		SavedAt:  time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Put(ctx, "user-1", "ws-1", d))

	got, ok, err := s.Get(ctx, "user-1", "ws-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d, got)

	require.NoError(t, s.Delete(ctx, "user-1", "ws-1"))
	_, ok, err = s.Get(ctx, "user-1", "ws-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetMissingDraft(t *testing.T) {
	s := openStore(t)
	_, ok, err := s.Get(context.Background(), "user-1", "ws-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwritesPerUserWorkspacePair(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "user-1", "ws-1", domain.Draft{Title: "first", SavedAt: time.Unix(1, 0).UTC()}))
	require.NoError(t, s.Put(ctx, "user-1", "ws-1", domain.Draft{Title: "second", SavedAt: time.Unix(2, 0).UTC()}))
	require.NoError(t, s.Put(ctx, "user-1", "ws-2", domain.Draft{Title: "other ws", SavedAt: time.Unix(3, 0).UTC()}))

	got, ok, err := s.Get(ctx, "user-1", "ws-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Title)

	got, ok, err = s.Get(ctx, "user-1", "ws-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "other ws", got.Title)
}
