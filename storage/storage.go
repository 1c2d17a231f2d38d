package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage key not found")

// ErrUnavailable wraps backend failures (I/O, network, Redis errors).
var ErrUnavailable = errors.New("storage unavailable")

// ErrInvalidKey is returned for empty keys or keys an adapter cannot represent.
var ErrInvalidKey = errors.New("invalid storage key")

// Storage is a durable key-value store addressed by string keys.
//
// Values written by Set must survive a restart of the client process for the
// durable adapters; Remove must make a key disappear for good. Remove on a
// missing key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

func cloneValue(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
