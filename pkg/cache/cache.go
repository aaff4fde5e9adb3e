// Package cache stores computed layouts so identical requests skip the
// layout engine.
//
// Three backends implement [Cache]:
//
//   - [FileCache] keeps entries as JSON files under a directory (CLI runs)
//   - [RedisCache] shares entries between server replicas
//   - [NullCache] disables caching
//
// [Compressed] wraps any backend with snappy block compression. Keys are
// produced by a [Keyer] so callers never build key strings by hand:
//
//	keys := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "tenant:a:")
//	key := keys.LayoutKey(cache.Hash(reqJSON), "graphviz")
//	data, ok, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}
