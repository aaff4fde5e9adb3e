package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/snappy"
)

// Compressed wraps a Cache so values are stored snappy-compressed. Layout
// JSON is highly repetitive and typically shrinks several fold.
type Compressed struct {
	inner Cache
}

// NewCompressed wraps inner.
func NewCompressed(inner Cache) *Compressed {
	return &Compressed{inner: inner}
}

func (c *Compressed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, false, fmt.Errorf("decompress %s: %w", key, err)
	}
	return out, true, nil
}

func (c *Compressed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, key, snappy.Encode(nil, data), ttl)
}

func (c *Compressed) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

// Clear forwards to the wrapped cache when it supports clearing.
func (c *Compressed) Clear(ctx context.Context) error {
	if cl, ok := c.inner.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return nil
}

func (c *Compressed) Close() error {
	return c.inner.Close()
}

var (
	_ Cache   = (*Compressed)(nil)
	_ Clearer = (*Compressed)(nil)
)
