package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// Keys under which the session is persisted.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// KV is durable local key/value storage for small string values, the
// terminal counterpart of browser localStorage. Implementations must be
// safe for concurrent use; writes are last-write-wins.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
