package cli

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mcmeta/pkg/cache"
	"github.com/matzehuels/mcmeta/pkg/config"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
	"github.com/matzehuels/mcmeta/pkg/metadata"
	"github.com/matzehuels/mcmeta/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "mcmeta"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Global flags.
	configPath string
	verbose    bool
	noCache    bool
	retries    int

	// cfg is loaded before any subcommand runs.
	cfg *config.App
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Service Factory
// =============================================================================

// loadConfig reads the configuration and applies global flag overrides.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	if c.retries >= 0 {
		cfg.HTTP.Retries = c.retries
	}
	c.cfg = cfg
	return nil
}

// newCache creates the configured response cache.
func newCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.DialRedis(ctx, cfg.RedisAddr, "")
	default:
		return cache.NewFileCache(cfg.Dir)
	}
}

// newClient creates a publisher client from the configuration.
func (c *CLI) newClient() *mojang.Client {
	return mojang.NewClient(append(c.cfg.Mojang.Options(),
		mojang.WithHTTPClient(&http.Client{Timeout: c.cfg.HTTP.Timeout}),
		mojang.WithLogger(c.Logger),
	)...)
}

// serviceOptions controls which collaborators newService opens.
type serviceOptions struct {
	withStore bool
}

// newService wires the metadata service. The returned close function releases
// the cache and store and must always be called.
func (c *CLI) newService(ctx context.Context, opts serviceOptions) (*metadata.Service, func() error, error) {
	ch, err := newCache(ctx, c.cfg.Cache)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", c.cfg.Cache.Backend, "err", err)
		ch = cache.NewNullCache()
	}

	var st store.Store
	if opts.withStore {
		if st, err = store.Open(ctx, c.cfg.Store); err != nil {
			_ = ch.Close()
			return nil, nil, err
		}
	}

	svc := metadata.New(c.newClient(), metadata.Options{
		Cache:   ch,
		TTL:     c.cfg.Cache.TTL,
		Store:   st,
		Zipped:  c.cfg.ZippedURLs(),
		Retries: c.cfg.HTTP.Retries,
		Logger:  c.Logger,
	})

	closeFn := func() error {
		var errList []error
		errList = append(errList, ch.Close())
		if st != nil {
			errList = append(errList, st.Close())
		}
		return errors.Join(errList...)
	}
	return svc, closeFn, nil
}
