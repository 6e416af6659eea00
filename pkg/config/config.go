// Package config loads mcmeta settings.
//
// Settings come from three layers, later layers winning:
//
//  1. Built-in defaults ([Default])
//  2. A TOML file, either passed explicitly or found at [DefaultConfigPath]
//  3. Environment variables prefixed with MCMETA_, with dots in the key
//     replaced by underscores (cache.ttl becomes MCMETA_CACHE_TTL)
//
// Example file:
//
//	[mojang]
//	manifest_url = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "30m"
//
//	[[zipped]]
//	id = "1.14_combat-212796"
//	url = "https://launcher.mojang.com/experiments/combat/610f5c9874ba8926d5ae1bcce647e5f0e6e7c889/1_14_combat-212796.zip"
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MCMETA"

	appName        = "mcmeta"
	configFileName = "config.toml"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// App is the full configuration of the mcmeta tool.
type App struct {
	Mojang Mojang          `mapstructure:"mojang" toml:"mojang"`
	Cache  Cache           `mapstructure:"cache" toml:"cache"`
	Store  Store           `mapstructure:"store" toml:"store"`
	Server Server          `mapstructure:"server" toml:"server"`
	Sync   Sync            `mapstructure:"sync" toml:"sync"`
	HTTP   HTTP            `mapstructure:"http" toml:"http"`
	Zipped []ZippedVersion `mapstructure:"zipped" toml:"zipped"`
}

// Cache selects and configures the response cache.
type Cache struct {
	Backend   string        `mapstructure:"backend" toml:"backend"`
	Dir       string        `mapstructure:"dir" toml:"dir"`
	TTL       time.Duration `mapstructure:"ttl" toml:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr" toml:"redis_addr"`
}

// Store selects and configures the document store.
type Store struct {
	Backend       string `mapstructure:"backend" toml:"backend"`
	Dir           string `mapstructure:"dir" toml:"dir"`
	MongoURI      string `mapstructure:"mongo_uri" toml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" toml:"mongo_database"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `mapstructure:"addr" toml:"addr"`
}

// Sync configures bulk mirroring.
type Sync struct {
	Concurrency int `mapstructure:"concurrency" toml:"concurrency"`
}

// HTTP configures outbound requests.
type HTTP struct {
	// Timeout bounds each request. Zero means the client default.
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
	// Retries is the number of extra attempts for retryable failures.
	Retries int `mapstructure:"retries" toml:"retries"`
}

// ZippedVersion is a release whose version document is only published inside
// a zip archive and therefore does not appear in the manifest.
type ZippedVersion struct {
	ID  string `mapstructure:"id" toml:"id"`
	URL string `mapstructure:"url" toml:"url"`
}

// Default returns the built-in configuration.
func Default() *App {
	cacheDir, _ := DefaultCacheDir()
	dataDir, _ := DefaultDataDir()
	return &App{
		Mojang: Mojang{ManifestURL: mojang.DefaultManifestURL},
		Cache: Cache{
			Backend:   CacheFile,
			Dir:       cacheDir,
			TTL:       time.Hour,
			RedisAddr: "localhost:6379",
		},
		Store: Store{
			Backend:       StoreFile,
			Dir:           dataDir,
			MongoDatabase: appName,
		},
		Server: Server{Addr: ":8080"},
		Sync:   Sync{Concurrency: 8},
		HTTP:   HTTP{Timeout: 30 * time.Second},
	}
}

// Load builds the configuration from defaults, the TOML file at path and the
// environment. An empty path loads [DefaultConfigPath] if it exists; an
// explicit path must exist. Unknown keys are rejected.
func Load(path string) (*App, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path == "" {
		if p, err := DefaultConfigPath(); err == nil && fileExists(p) {
			path = p
		}
	} else if !fileExists(path) {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "config file not found: %s", path)
	}
	if path != "" {
		if err := mergeTOML(v, path); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg App
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *App) {
	v.SetDefault("mojang.manifest_url", d.Mojang.ManifestURL)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.mongo_uri", d.Store.MongoURI)
	v.SetDefault("store.mongo_database", d.Store.MongoDatabase)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("sync.concurrency", d.Sync.Concurrency)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.retries", d.HTTP.Retries)
}

// mergeTOML decodes the file at path and merges it over the defaults.
func mergeTOML(v *viper.Viper, path string) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := v.MergeConfigMap(raw); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "merge config %s", path)
	}
	return nil
}

// Validate reports the first invalid setting as an INVALID_CONFIG error.
func (a *App) Validate() error {
	if err := a.Mojang.Validate(); err != nil {
		return err
	}

	switch a.Cache.Backend {
	case CacheFile:
		if a.Cache.Dir == "" {
			return invalid("cache.dir", "is required for the file backend")
		}
	case CacheRedis:
		if a.Cache.RedisAddr == "" {
			return invalid("cache.redis_addr", "is required for the redis backend")
		}
	case CacheNone:
	default:
		return invalid("cache.backend", "must be one of file, redis, none; got %q", a.Cache.Backend)
	}
	if a.Cache.TTL < 0 {
		return invalid("cache.ttl", "must not be negative")
	}

	switch a.Store.Backend {
	case StoreFile:
		if a.Store.Dir == "" {
			return invalid("store.dir", "is required for the file backend")
		}
	case StoreMongo:
		if a.Store.MongoURI == "" {
			return invalid("store.mongo_uri", "is required for the mongo backend")
		}
		if a.Store.MongoDatabase == "" {
			return invalid("store.mongo_database", "is required for the mongo backend")
		}
	case StoreMemory:
	default:
		return invalid("store.backend", "must be one of file, mongo, memory; got %q", a.Store.Backend)
	}

	if a.Server.Addr == "" {
		return invalid("server.addr", "is required")
	}
	if a.Sync.Concurrency < 1 {
		return invalid("sync.concurrency", "must be at least 1")
	}
	if a.HTTP.Timeout < 0 {
		return invalid("http.timeout", "must not be negative")
	}
	if a.HTTP.Retries < 0 {
		return invalid("http.retries", "must not be negative")
	}

	seen := make(map[string]bool, len(a.Zipped))
	for i, z := range a.Zipped {
		if err := errs.ValidateVersionID(z.ID); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "zipped[%d].id", i)
		}
		if seen[z.ID] {
			return invalid("zipped", "duplicate id %q", z.ID)
		}
		seen[z.ID] = true
		if err := errs.ValidateURL(z.URL); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "zipped[%d].url", i)
		}
	}
	return nil
}

// ZippedURLs maps each zipped release id to its archive URL.
func (a *App) ZippedURLs() map[string]string {
	m := make(map[string]string, len(a.Zipped))
	for _, z := range a.Zipped {
		m[z.ID] = z.URL
	}
	return m
}

func invalid(key, format string, args ...any) error {
	return errs.New(errs.ErrCodeInvalidConfig, key+": "+format, args...)
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/mcmeta/config.toml, falling back
// to ~/.config/mcmeta/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/mcmeta, falling back to
// ~/.cache/mcmeta.
func DefaultCacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// DefaultDataDir returns $XDG_DATA_HOME/mcmeta, falling back to
// ~/.local/share/mcmeta.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
