// Package metadata combines the launcher metadata client with caching,
// retries and persistence.
//
// # Overview
//
// [Service] is the layer the CLI and the HTTP API talk to. It resolves a
// release id to its version document, whether the release is listed in the
// manifest or only published as a zip archive, and mirrors the whole catalogue
// into a [store.Store] with [Service.Sync].
//
//	svc := metadata.New(mojang.NewClient(), metadata.Options{
//	    Cache: cache.NewNullCache(),
//	    Store: store.NewMemoryStore(),
//	})
//	doc, err := svc.Version(ctx, "1.16.5", false)
//
// # Caching
//
// Documents are cached after validation, so a cache hit is as trustworthy as
// a fresh fetch. Cache failures are logged and otherwise ignored: the cache
// can slow the service down but never make it fail.
package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mcmeta/pkg/cache"
	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/httputil"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
	"github.com/matzehuels/mcmeta/pkg/observability"
	"github.com/matzehuels/mcmeta/pkg/store"
)

const defaultRetryDelay = time.Second

// Document kinds reported to the cache hooks.
const (
	kindManifest = "manifest"
	kindVersion  = "version"
	kindZipped   = "zipped"
)

// Fetcher retrieves validated documents from the publisher.
// [*mojang.Client] implements it.
type Fetcher interface {
	ManifestURL() string
	FetchManifest(ctx context.Context) (*mojang.VersionManifest, error)
	FetchVersion(ctx context.Context, versionURL string) (*mojang.VersionDocument, error)
	FetchZippedVersion(ctx context.Context, archiveURL string) (*mojang.VersionDocument, error)
}

// Options configures a [Service]. The zero value disables caching, retries
// and persistence.
type Options struct {
	// Cache stores validated documents. Nil disables caching.
	Cache cache.Cache
	// Keyer builds cache keys. Defaults to a keyer scoped to the manifest
	// URL when it is not the default endpoint.
	Keyer cache.Keyer
	// TTL bounds how long cached documents are served.
	TTL time.Duration
	// Store receives documents mirrored by Sync. Required for Sync only.
	Store store.Store
	// Zipped maps release ids to archive URLs for releases that are not in
	// the manifest.
	Zipped map[string]string
	// Retries is the number of extra attempts for retryable failures.
	Retries int
	// RetryDelay is the initial backoff. Defaults to one second.
	RetryDelay time.Duration
	Logger     *log.Logger
}

// Service resolves and mirrors launcher metadata.
// It is safe for concurrent use.
type Service struct {
	fetcher    Fetcher
	cache      cache.Cache
	keys       cache.Keyer
	ttl        time.Duration
	store      store.Store
	zipped     map[string]string
	retries    int
	retryDelay time.Duration
	logger     *log.Logger
}

// New creates a Service around f.
func New(f Fetcher, opts Options) *Service {
	s := &Service{
		fetcher:    f,
		cache:      opts.Cache,
		keys:       opts.Keyer,
		ttl:        opts.TTL,
		store:      opts.Store,
		zipped:     make(map[string]string, len(opts.Zipped)),
		retries:    max(opts.Retries, 0),
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
	}
	for id, u := range opts.Zipped {
		s.zipped[id] = u
	}
	if s.cache == nil {
		s.cache = cache.NewNullCache()
	}
	if s.keys == nil {
		s.keys = cache.NewDefaultKeyer()
		if u := f.ManifestURL(); u != mojang.DefaultManifestURL {
			s.keys = cache.NewScopedKeyer(s.keys, "mirror:"+cache.Hash([]byte(u))[:12]+":")
		}
	}
	if s.retryDelay <= 0 {
		s.retryDelay = defaultRetryDelay
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Store returns the configured store, which may be nil.
func (s *Service) Store() store.Store { return s.store }

// Manifest returns the version manifest, from the cache unless refresh is set.
func (s *Service) Manifest(ctx context.Context, refresh bool) (*mojang.VersionManifest, error) {
	m, _, err := s.manifest(ctx, refresh)
	return m, err
}

// manifest also reports whether the result came from the cache.
func (s *Service) manifest(ctx context.Context, refresh bool) (*mojang.VersionManifest, bool, error) {
	key := s.keys.ManifestKey(s.fetcher.ManifestURL())
	if !refresh {
		var m mojang.VersionManifest
		if s.cached(ctx, kindManifest, key, &m) {
			return &m, true, nil
		}
	}

	m, err := httputil.RetryValue(ctx, s.retries+1, s.retryDelay, func() (*mojang.VersionManifest, error) {
		return s.fetcher.FetchManifest(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	s.remember(ctx, kindManifest, key, m)
	return m, false, nil
}

// Version returns the document of release id. Releases configured as zipped
// are extracted from their archive; all others are looked up in the manifest.
//
// Returns a NOT_FOUND error if id is neither zipped nor listed, even after
// refreshing a cached manifest, and an INVALID_INPUT error for malformed ids.
func (s *Service) Version(ctx context.Context, id string, refresh bool) (*mojang.VersionDocument, error) {
	if err := errs.ValidateVersionID(id); err != nil {
		return nil, err
	}

	key := s.keys.VersionKey(id)
	if !refresh {
		var doc mojang.VersionDocument
		if s.cached(ctx, kindVersion, key, &doc) {
			return &doc, nil
		}
	}

	doc, err := s.resolve(ctx, id, refresh)
	if err != nil {
		return nil, err
	}
	if doc.ID != id {
		s.logger.Warn("version document id differs from requested id", "requested", id, "document", doc.ID)
	}
	s.remember(ctx, kindVersion, key, doc)
	return doc, nil
}

func (s *Service) resolve(ctx context.Context, id string, refresh bool) (*mojang.VersionDocument, error) {
	if archiveURL, ok := s.zipped[id]; ok {
		return s.fetchZipped(ctx, archiveURL)
	}

	m, fromCache, err := s.manifest(ctx, refresh)
	if err != nil {
		return nil, err
	}
	summary, ok := m.Find(id)
	if !ok && fromCache {
		// A release newer than the cached manifest.
		if m, _, err = s.manifest(ctx, true); err != nil {
			return nil, err
		}
		summary, ok = m.Find(id)
	}
	if !ok {
		return nil, errs.New(errs.ErrCodeNotFound, "version %q is not listed in the manifest", id)
	}
	return s.fetchVersion(ctx, summary.URL)
}

// VersionByURL fetches a version document directly. With zipped set the URL
// must point at an archive. Archive results are cached by URL.
func (s *Service) VersionByURL(ctx context.Context, rawURL string, zipped bool) (*mojang.VersionDocument, error) {
	if !zipped {
		return s.fetchVersion(ctx, rawURL)
	}

	key := s.keys.ArchiveKey(rawURL)
	var doc mojang.VersionDocument
	if s.cached(ctx, kindZipped, key, &doc) {
		return &doc, nil
	}
	d, err := s.fetchZipped(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, kindZipped, key, d)
	return d, nil
}

func (s *Service) fetchVersion(ctx context.Context, versionURL string) (*mojang.VersionDocument, error) {
	return httputil.RetryValue(ctx, s.retries+1, s.retryDelay, func() (*mojang.VersionDocument, error) {
		return s.fetcher.FetchVersion(ctx, versionURL)
	})
}

func (s *Service) fetchZipped(ctx context.Context, archiveURL string) (*mojang.VersionDocument, error) {
	return httputil.RetryValue(ctx, s.retries+1, s.retryDelay, func() (*mojang.VersionDocument, error) {
		return s.fetcher.FetchZippedVersion(ctx, archiveURL)
	})
}

// cached loads key into v, logging and ignoring cache failures.
func (s *Service) cached(ctx context.Context, kind, key string, v any) bool {
	err := cache.GetJSON(ctx, s.cache, key, v)
	switch {
	case err == nil:
		s.logger.Debug("cache hit", "key", key)
		observability.Cache().OnCacheHit(ctx, kind)
		return true
	case errors.Is(err, cache.ErrCacheMiss):
		observability.Cache().OnCacheMiss(ctx, kind)
		return false
	default:
		s.logger.Warn("cache read failed", "key", key, "err", err)
		observability.Cache().OnCacheMiss(ctx, kind)
		return false
	}
}

func (s *Service) remember(ctx context.Context, kind, key string, v any) {
	err := cache.SetJSON(ctx, s.cache, key, v, s.ttl)
	if err != nil {
		s.logger.Warn("cache write failed", "key", key, "err", err)
	}
	observability.Cache().OnCacheSet(ctx, kind, err)
}
