// Package storage translates between the store's in-memory shape and a
// durable serialized form: one JSON document under one fixed key.
package storage

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV.Get when the key has never been written
// or was cleared.
var ErrKeyNotFound = errors.New("key not found")

// KV is the durable slot the gateway persists application state into.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
