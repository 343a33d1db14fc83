package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/store"
)

// NewTestStore returns a migrated in-memory SQLite store that is closed
// with the test.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening test store")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SeedSession writes token and user into kv the way a signed-in session
// persists them, so a later Restore picks them up.
func SeedSession(t *testing.T, kv store.KV, token string, user model.User) {
	t.Helper()

	data, err := json.Marshal(user)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, store.KeyToken, token))
	require.NoError(t, kv.Set(ctx, store.KeyUser, string(data)))
}
