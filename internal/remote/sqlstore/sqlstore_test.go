package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/pantry/internal/remote"
)

func openStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestStore_PutGetDelete(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	created, err := store.Put(ctx, "k", []byte(`{"a":1}`), time.Minute)
	require.NoError(t, err)
	assert.True(t, created)

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(value))

	created, err = store.Put(ctx, "k", []byte(`{"a":2}`), time.Minute)
	require.NoError(t, err)
	assert.False(t, created, "live key must not be overwritten")

	value, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(value))

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, remote.ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "missing"))
}

func TestStore_Expiry(t *testing.T) {
	store, clock := openStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "old", []byte("1"), time.Minute)
	require.NoError(t, err)
	_, err = store.Put(ctx, "fresh", []byte("2"), time.Hour)
	require.NoError(t, err)

	*clock = clock.Add(2 * time.Minute)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, remote.ErrNotFound, "expired records are hidden before the sweep")

	created, err := store.Put(ctx, "old", []byte("3"), time.Minute)
	require.NoError(t, err)
	assert.True(t, created, "an expired key can be reused")

	*clock = clock.Add(2 * time.Minute)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	value, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "2", string(value))
}
