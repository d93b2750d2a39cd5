package repositories

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound = errors.New("storage key not found")
	ErrClosed      = errors.New("storage closed")
)

// StorageEvent says that Key was replaced or deleted by the view Origin.
type StorageEvent struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// SharedStorage is the durable key/value store every view of a cart reads
// and writes. Writes replace the whole value; there is no locking, so
// concurrent writers race and the last one wins.
//
// Subscribers see every change, including their own; filtering on Origin
// is the subscriber's job.
type SharedStorage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, origin, key string, value []byte) error
	Delete(ctx context.Context, origin, key string) error
	// Take atomically reads and deletes key. Of several concurrent callers
	// at most one gets the value; the rest see ErrKeyNotFound.
	Take(ctx context.Context, origin, key string) ([]byte, error)
	Subscribe(ctx context.Context, fn func(StorageEvent)) (cancel func(), err error)
}
