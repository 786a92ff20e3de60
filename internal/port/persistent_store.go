package port

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type PersistentStore interface {
	// Get returns the stored value, or ErrNotFound if the key was never written
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key
	Set(ctx context.Context, key string, value []byte) error

	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error
}
