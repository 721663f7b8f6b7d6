package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminexus/internal/database"
)

func newSQLiteStore(t *testing.T) *SQLKeyValueStore {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping SQLite-backed test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations("../../migrations"))

	return NewSQLKeyValueStore(db)
}

func TestKeyValueStores(t *testing.T) {
	backends := map[string]func(t *testing.T) KeyValueStore{
		"memory": func(t *testing.T) KeyValueStore { return NewMemoryKeyValueStore() },
		"sqlite": func(t *testing.T) KeyValueStore { return newSQLiteStore(t) },
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			defer store.Close()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrKeyNotFound)

			require.NoError(t, store.Set(ctx, "a:1", []byte("one")))
			require.NoError(t, store.Set(ctx, "a:2", []byte("two")))
			require.NoError(t, store.Set(ctx, "b_1", []byte("other")))

			value, err := store.Get(ctx, "a:1")
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), value)

			require.NoError(t, store.Set(ctx, "a:1", []byte("uno")), "set overwrites")
			value, err = store.Get(ctx, "a:1")
			require.NoError(t, err)
			assert.Equal(t, []byte("uno"), value)

			keys, err := store.Keys(ctx, "a:")
			require.NoError(t, err)
			assert.Equal(t, []string{"a:1", "a:2"}, keys)

			// '_' must not act as a wildcard
			keys, err = store.Keys(ctx, "b_")
			require.NoError(t, err)
			assert.Equal(t, []string{"b_1"}, keys)

			require.NoError(t, store.Delete(ctx, "a:1"))
			require.NoError(t, store.Delete(ctx, "a:1"), "deleting twice is fine")
			_, err = store.Get(ctx, "a:1")
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKeyValueStore()

	value := []byte("orig")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), got)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "luminexus-progress:", escapeGlob("luminexus-progress:"))
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
}

func TestNewRedisKeyValueStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisKeyValueStore(context.Background(), RedisOptions{})
	assert.Error(t, err)
}
