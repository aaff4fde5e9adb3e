// Package cached wraps a layout engine with a result cache.
//
// Identical requests (same tree, sizes and options) map to the same cache key,
// so repeated layouts of an unchanged chart skip the engine entirely.
// Concurrent identical requests share one engine call.
package cached

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/statelayout/pkg/cache"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/observability"
)

// DefaultTTL is how long cached results live unless overridden.
const DefaultTTL = 7 * 24 * time.Hour

// Engine is a caching decorator for another engine.
type Engine struct {
	inner  engine.Engine
	cache  cache.Cache
	keys   cache.Keyer
	ttl    time.Duration
	logger *log.Logger
	group  singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithKeyer replaces the default keyer.
func WithKeyer(k cache.Keyer) Option { return func(e *Engine) { e.keys = k } }

// WithTTL sets the lifetime of cached results. Zero means no expiry.
func WithTTL(ttl time.Duration) Option { return func(e *Engine) { e.ttl = ttl } }

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// New wraps inner with c. A nil cache disables caching.
func New(inner engine.Engine, c cache.Cache, opts ...Option) *Engine {
	if c == nil {
		c = cache.NewNullCache()
	}
	e := &Engine{
		inner:  inner,
		cache:  c,
		keys:   cache.NewDefaultKeyer(),
		ttl:    DefaultTTL,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name reports the wrapped engine's name so metrics and keys stay stable
// whether or not caching is on.
func (e *Engine) Name() string { return engine.NameOf(e.inner) }

// Layout returns a cached result for req, computing and storing it on a miss.
// Cache failures are logged and never fail the layout.
func (e *Engine) Layout(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
	raw, err := req.Key()
	if err != nil {
		return nil, err
	}
	key := e.keys.LayoutKey(cache.Hash(raw), e.Name())
	hooks := observability.Cache()

	if data, ok, err := e.cache.Get(ctx, key); err != nil {
		e.logger.Warn("layout cache read failed", "key", key, "error", err)
	} else if ok {
		var res engine.ResultNode
		if err := json.Unmarshal(data, &res); err == nil {
			hooks.OnCacheHit(ctx, key)
			e.logger.Debug("layout cache hit", "key", key)
			return &res, nil
		}
		e.logger.Warn("dropping undecodable layout cache entry", "key", key)
		_ = e.cache.Delete(ctx, key)
	}
	hooks.OnCacheMiss(ctx, key)

	v, err, _ := e.group.Do(key, func() (any, error) {
		res, err := e.inner.Layout(ctx, req)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		if err := e.cache.Set(ctx, key, data, e.ttl); err != nil {
			e.logger.Warn("layout cache write failed", "key", key, "error", err)
		} else {
			hooks.OnCacheSet(ctx, key, len(data))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	// Each caller decodes its own copy; translation mutates Absolute.
	var res engine.ResultNode
	if err := json.Unmarshal(v.([]byte), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

var _ engine.Engine = (*Engine)(nil)
