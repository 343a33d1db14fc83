package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()

	sq, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]KV{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestKVContract(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, KeyToken)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, KeyToken, "first"))
			require.NoError(t, kv.Set(ctx, KeyToken, "second"))

			got, err := kv.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.Equal(t, "second", got)

			require.NoError(t, kv.Delete(ctx, KeyToken))
			require.NoError(t, kv.Delete(ctx, KeyToken))

			_, err = kv.Get(ctx, KeyToken)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyUser, `{"id":"u1"}`))
	require.NoError(t, s.Set(ctx, KeyToken, "tok"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, got)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyToken, KeyUser}, keys)

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestMemoryStoreLen(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, KeyToken, "tok"))
	require.NoError(t, m.Set(ctx, KeyUser, "{}"))
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.Delete(ctx, KeyUser))
	assert.Equal(t, 1, m.Len())
}
