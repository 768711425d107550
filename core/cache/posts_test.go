package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T, expiry time.Duration) (*Store, *time.Time) {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cache.db"), expiry)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStore_GetPut(t *testing.T) {
	s, _ := setupTestStore(t, time.Hour)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "blog-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "blog-1", []byte(`{"a":1}`)))
	body, ok, err := s.Get(ctx, "blog-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(body))

	require.NoError(t, s.Put(ctx, "blog-1", []byte(`{"a":2}`)))
	body, _, err = s.Get(ctx, "blog-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(body))
}

func TestStore_Expiry(t *testing.T) {
	s, now := setupTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "old", []byte("x")))
	*now = now.Add(30 * time.Minute)
	require.NoError(t, s.Put(ctx, "new", []byte("y")))

	*now = now.Add(45 * time.Minute)
	_, ok, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok, "entry older than expiry is a miss")

	_, ok, err = s.Get(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.Prune(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
