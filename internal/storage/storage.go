// Package storage provides the durable key-value primitive guest-mode
// collection records are written to. Retention and ownership checks live a
// layer up, in the persistence adapter; stores here only move bytes.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("storage: record not found")

// KV is the durable store surface the persistence adapter consumes.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
