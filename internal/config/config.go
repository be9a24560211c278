// Package config loads storyweave settings.
//
// Values are resolved in order: built-in defaults, then the TOML file
// ($XDG_CONFIG_HOME/storyweave/config.toml unless another path is given),
// then STORYWEAVE_* environment variables. Command-line flags are applied
// last by the CLI.
//
//	[store]
//	driver = "sqlite"
//	path = "/var/lib/storyweave/state.db"
//
//	[layout]
//	direction = "LR"
//
//	[server]
//	addr = ":8080"
//
// The matching environment variables are STORYWEAVE_STORE_DRIVER,
// STORYWEAVE_STORE_PATH, STORYWEAVE_LAYOUT_DIRECTION and
// STORYWEAVE_SERVER_ADDR.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/matzehuels/storyweave/pkg/cache"
	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/pipeline"
	"github.com/matzehuels/storyweave/pkg/render"
	"github.com/matzehuels/storyweave/pkg/server"
	"github.com/matzehuels/storyweave/pkg/store"
	"github.com/matzehuels/storyweave/pkg/validate"
)

const (
	appName = "storyweave"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "STORYWEAVE_"
)

// Cache drivers.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the full configuration.
type Config struct {
	Store   store.Config  `toml:"store" envPrefix:"STORE_"`
	Layout  Layout        `toml:"layout" envPrefix:"LAYOUT_"`
	Server  server.Config `toml:"server" envPrefix:"SERVER_"`
	Gallery Gallery       `toml:"gallery" envPrefix:"GALLERY_"`
	Limits  Limits        `toml:"limits" envPrefix:"LIMITS_"`
	Cache   Cache         `toml:"cache" envPrefix:"CACHE_"`

	// Path is the file the config was read from, empty if none.
	Path string `toml:"-"`
}

// Layout holds diagram defaults.
type Layout struct {
	Mode      string  `toml:"mode" env:"MODE"`
	Direction string  `toml:"direction" env:"DIRECTION"`
	NodeSep   float64 `toml:"node_sep" env:"NODE_SEP"`
	RankSep   float64 `toml:"rank_sep" env:"RANK_SEP"`
	Sweeps    int     `toml:"sweeps" env:"SWEEPS"`
	Style     string  `toml:"style" env:"STYLE"`
	Seed      uint64  `toml:"seed" env:"SEED"`
	Margin    float64 `toml:"margin" env:"MARGIN"`
}

// Gallery configures the sample-story manifest.
type Gallery struct {
	URL      string        `toml:"url" env:"URL"`
	CacheTTL time.Duration `toml:"cache_ttl" env:"CACHE_TTL"`
	Attempts int           `toml:"attempts" env:"ATTEMPTS"`
}

// Limits bounds input and persistence behavior.
type Limits struct {
	MaxNodes int           `toml:"max_nodes" env:"MAX_NODES"`
	Debounce time.Duration `toml:"debounce" env:"DEBOUNCE"`
}

// Cache configures the layout and artifact cache.
type Cache struct {
	Driver string `toml:"driver" env:"DRIVER"`
	Dir    string `toml:"dir" env:"DIR"`
	URL    string `toml:"url" env:"URL"`
	// Prefix scopes every cache key, so deployments sharing a cache stay
	// apart.
	Prefix string `toml:"prefix" env:"PREFIX"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: store.Config{Driver: store.DriverFile},
		Layout: Layout{
			Mode:      pipeline.DefaultMode,
			Direction: string(layout.TopBottom),
			NodeSep:   layout.DefaultNodeSep,
			RankSep:   layout.DefaultRankSep,
			Sweeps:    layout.DefaultSweeps,
			Style:     render.StyleSimple,
			Seed:      pipeline.DefaultSeed,
			Margin:    render.DefaultMargin,
		},
		Server: server.Config{
			Addr:            server.DefaultAddr,
			MaxBodyBytes:    server.DefaultMaxBodyBytes,
			RequestTimeout:  server.DefaultRequestTimeout,
			ShutdownTimeout: server.DefaultShutdownTimeout,
		},
		Gallery: Gallery{CacheTTL: cache.TTLHTTP, Attempts: 3},
		Limits:  Limits{MaxNodes: validate.DefaultMaxNodes, Debounce: store.DefaultDebounce},
		Cache:   Cache{Driver: CacheFile},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/storyweave/config.toml, falling
// back to the OS user config directory.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/storyweave or ~/.cache/storyweave.
func DefaultCacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load resolves the configuration. An empty path reads the default file if
// it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Parse(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("%s: %w", path, err)
			}
			cfg.Path = path
		case explicit || !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML over cfg. Unknown keys are an error.
func Parse(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks enumerated values and fills paths that depend on others.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case store.DriverMemory, store.DriverFile, store.DriverRedis, store.DriverMongo:
	case store.DriverSQLite:
		if c.Store.Path == "" {
			dir, err := store.DefaultDir()
			if err != nil {
				return err
			}
			c.Store.Path = filepath.Join(dir, appName+".db")
		}
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}

	switch strings.ToLower(c.Cache.Driver) {
	case CacheFile, CacheNone, "":
	case CacheRedis:
		if c.Cache.URL == "" {
			return fmt.Errorf("cache.url is required for the redis cache")
		}
	default:
		return fmt.Errorf("cache.driver: unknown driver %q (want file, redis or none)", c.Cache.Driver)
	}

	opts := c.PipelineOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if c.Limits.MaxNodes < 0 {
		return fmt.Errorf("limits.max_nodes must not be negative")
	}
	if c.Gallery.URL != "" && !strings.HasPrefix(c.Gallery.URL, "http://") && !strings.HasPrefix(c.Gallery.URL, "https://") {
		return fmt.Errorf("gallery.url must use http or https")
	}
	return nil
}

// PipelineOptions returns pipeline options carrying the layout defaults.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Mode:      c.Layout.Mode,
		Direction: c.Layout.Direction,
		NodeSep:   c.Layout.NodeSep,
		RankSep:   c.Layout.RankSep,
		Sweeps:    c.Layout.Sweeps,
		Style:     c.Layout.Style,
		Seed:      c.Layout.Seed,
		Margin:    c.Layout.Margin,
	}
}

// Validator returns a validator with the configured node cap.
func (c *Config) Validator() validate.Validator {
	return validate.Validator{MaxNodes: c.Limits.MaxNodes}
}
