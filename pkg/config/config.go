// Package config loads statelayout's settings.
//
// Settings come from three layers, later layers winning:
//
//  1. [Default]
//  2. a TOML file (see [Load])
//  3. STATELAYOUT_* environment variables (see [Config.ApplyEnv])
//
// A minimal file:
//
//	[engine]
//	name = "remote"
//	endpoint = "http://localhost:3000/layout"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/statelayout/pkg/errors"
)

// AppName names the cache directory and the default Mongo database.
const AppName = "statelayout"

// Engine names.
const (
	EngineGraphviz = "graphviz"
	EngineRemote   = "remote"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config is the complete configuration.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Layout LayoutConfig `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
}

// EngineConfig selects the layout engine.
type EngineConfig struct {
	Name     string   `toml:"name" validate:"oneof=graphviz remote"`
	Endpoint string   `toml:"endpoint" validate:"required_if=Name remote"`
	Timeout  Duration `toml:"timeout"`
	Retries  int      `toml:"retries" validate:"min=0,max=10"`
}

// LayoutConfig tunes request construction and the readiness wait.
type LayoutConfig struct {
	SettleDelay Duration `toml:"settle_delay"`
	Margin      float64  `toml:"margin" validate:"min=0"`
	PortSize    float64  `toml:"port_size" validate:"min=0"`
	LabelHeight float64  `toml:"label_height" validate:"min=0"`
	AspectRatio string   `toml:"aspect_ratio" validate:"omitempty,numeric"`
	Direction   string   `toml:"direction" validate:"omitempty,oneof=DOWN UP LEFT RIGHT"`
	Timeout     Duration `toml:"timeout"`
	Concurrency int      `toml:"concurrency" validate:"min=1,max=64"`
}

// CacheConfig selects the layout result cache.
type CacheConfig struct {
	Backend       string   `toml:"backend" validate:"oneof=none file redis"`
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db" validate:"min=0"`
	Prefix        string   `toml:"prefix"`
	TTL           Duration `toml:"ttl"`
	Compress      bool     `toml:"compress"`
}

// StoreConfig selects where the API keeps layout documents.
type StoreConfig struct {
	Backend    string `toml:"backend" validate:"oneof=memory mongo"`
	MongoURI   string `toml:"mongo_uri" validate:"required_if=Backend mongo"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `toml:"addr" validate:"required"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	MaxBodyBytes int64    `toml:"max_body_bytes" validate:"min=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:    EngineGraphviz,
			Timeout: Duration{30 * time.Second},
		},
		Layout: LayoutConfig{
			SettleDelay: Duration{20 * time.Millisecond},
			Margin:      30,
			PortSize:    5,
			LabelHeight: 100,
			AspectRatio: "0.5",
			Timeout:     Duration{time.Minute},
			Concurrency: 4,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Dir:     DefaultCacheDir(),
			Prefix:  AppName + ":",
			TTL:     Duration{7 * 24 * time.Hour},
		},
		Store: StoreConfig{
			Backend:    StoreMemory,
			Database:   AppName,
			Collection: "layouts",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{2 * time.Minute},
			MaxBodyBytes: 1 << 20,
		},
	}
}

// Load reads the TOML file at path on top of [Default], applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s not found", path)
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from STATELAYOUT_* variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("STATELAYOUT_ENGINE", &c.Engine.Name)
	str("STATELAYOUT_ENGINE_ENDPOINT", &c.Engine.Endpoint)
	str("STATELAYOUT_CACHE", &c.Cache.Backend)
	str("STATELAYOUT_CACHE_DIR", &c.Cache.Dir)
	str("STATELAYOUT_REDIS_ADDR", &c.Cache.RedisAddr)
	str("STATELAYOUT_REDIS_PASSWORD", &c.Cache.RedisPassword)
	str("STATELAYOUT_STORE", &c.Store.Backend)
	str("STATELAYOUT_MONGO_URI", &c.Store.MongoURI)
	str("STATELAYOUT_ADDR", &c.Server.Addr)

	if v, ok := lookup("STATELAYOUT_REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "STATELAYOUT_REDIS_DB")
		}
		c.Cache.RedisDB = db
	}
	return nil
}

var validate = validator.New()

// Validate checks every section. Errors carry [errors.ErrCodeInvalidConfig].
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, formatValidationError(err), "invalid config")
	}
	if c.Engine.Endpoint != "" {
		if err := errors.ValidateURL(c.Engine.Endpoint); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "engine.endpoint")
		}
	}
	if c.Cache.Backend == CacheFile && c.Cache.Dir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.dir is required for the file backend")
	}
	return nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Errorf("%s is required", e.Namespace())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", e.Namespace(), e.Param(), e.Value())
	default:
		return fmt.Errorf("%s failed %s=%s", e.Namespace(), e.Tag(), e.Param())
	}
}

// DefaultCacheDir follows the XDG convention: $XDG_CACHE_HOME/statelayout,
// falling back to ~/.cache/statelayout. It returns "" when no home directory
// can be determined.
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", AppName)
}
