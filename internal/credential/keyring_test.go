package credential

import (
	"context"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/store"
)

func TestKeyringKV(t *testing.T) {
	ctx := context.Background()
	k := New(keyring.NewArrayKeyring(nil))

	_, err := k.Get(ctx, store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, k.Set(ctx, store.KeyToken, "tok-1"))
	got, err := k.Get(ctx, store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	require.NoError(t, k.Delete(ctx, store.KeyToken))
	require.NoError(t, k.Delete(ctx, store.KeyToken))

	_, err = k.Get(ctx, store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

var _ store.KV = (*Keyring)(nil)
