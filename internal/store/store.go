// Package store provides the key-value persistence used by the repositories.
// Values are opaque byte slices; encoding is the repositories' concern.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// Store is a minimal key-value store with atomic counters.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// List returns every key starting with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Incr atomically increments the named counter and returns the new value.
	// Counters start at zero and live in a namespace separate from keys.
	Incr(ctx context.Context, name string) (int64, error)
	// Close releases the backend's resources.
	Close() error
}
