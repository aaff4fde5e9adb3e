package pipeline

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/statelayout/pkg/cache"
	"github.com/matzehuels/statelayout/pkg/config"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/engine/cached"
	"github.com/matzehuels/statelayout/pkg/engine/graphviz"
	"github.com/matzehuels/statelayout/pkg/engine/remote"
	"github.com/matzehuels/statelayout/pkg/errors"
	"github.com/matzehuels/statelayout/pkg/layout"
	"github.com/matzehuels/statelayout/pkg/rect"
	"github.com/matzehuels/statelayout/pkg/store"
)

// =============================================================================
// Engine
// =============================================================================

// NewEngine builds the engine selected by cfg, wrapped in the configured
// result cache. The returned cache must be closed by the caller; it is a
// NullCache when caching is disabled.
func NewEngine(cfg *config.Config, logger *log.Logger) (engine.Engine, cache.Cache, error) {
	var base engine.Engine
	switch cfg.Engine.Name {
	case config.EngineGraphviz:
		base = graphviz.New()
	case config.EngineRemote:
		base = remote.New(cfg.Engine.Endpoint,
			remote.WithHTTPClient(&http.Client{Timeout: cfg.Engine.Timeout.Duration}),
			remote.WithRetries(cfg.Engine.Retries))
	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig, "unknown engine %q", cfg.Engine.Name)
	}

	c, err := NewCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := c.(*cache.NullCache); ok {
		return base, c, nil
	}

	// Redis namespaces keys itself.
	keyer := cache.NewDefaultKeyer()
	if cfg.Cache.Backend != config.CacheRedis {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Prefix)
	}
	logger.Debug("layout cache enabled", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL.Duration)
	return cached.New(base, c,
		cached.WithKeyer(keyer),
		cached.WithTTL(cfg.Cache.TTL.Duration),
		cached.WithLogger(logger),
	), c, nil
}

// NewCache opens the cache backend selected by cfg.
func NewCache(cfg *config.Config) (cache.Cache, error) {
	var c cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheFile:
		fc, err := cache.NewFileCache(cfg.Cache.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open cache dir %s", cfg.Cache.Dir)
		}
		c = fc
	case config.CacheRedis:
		c = cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB,
			cache.WithRedisPrefix(cfg.Cache.Prefix))
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Cache.Backend)
	}
	if cfg.Cache.Compress {
		c = cache.NewCompressed(c)
	}
	return c, nil
}

// =============================================================================
// Layout Options
// =============================================================================

// LayoutOptions maps the layout section of cfg to layouter options.
func LayoutOptions(cfg *config.Config) []layout.Option {
	l := cfg.Layout
	opts := []layout.Option{
		layout.WithSettleDelay(l.SettleDelay.Duration),
		layout.WithMargin(l.Margin),
		layout.WithPortSize(l.PortSize),
		layout.WithLabelHeight(l.LabelHeight),
		layout.WithFallbackSize(rect.Size{}),
	}
	if l.AspectRatio != "" {
		opts = append(opts, layout.WithAspectRatio(l.AspectRatio))
	}
	return opts
}

// NewRunnerFromConfig builds a runner with the engine, cache and layout
// settings of cfg. Closing the returned cache is the caller's job.
func NewRunnerFromConfig(cfg *config.Config, logger *log.Logger) (*Runner, cache.Cache, error) {
	if logger == nil {
		logger = log.Default()
	}
	e, c, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	r := NewRunner(e, logger, LayoutOptions(cfg)...)
	if cfg.Layout.Direction != "" {
		r.EngineOptions = engine.Options{engine.OptDirection: cfg.Layout.Direction}
	}
	return r, c, nil
}

// =============================================================================
// Store
// =============================================================================

// NewStore opens the document store selected by cfg.
func NewStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreMongo:
		s, err := store.NewMongo(ctx, cfg.Store.MongoURI, cfg.Store.Database, cfg.Store.Collection)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to mongo")
		}
		return s, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Store.Backend)
	}
}
