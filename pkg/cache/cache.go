// Package cache provides byte-level caching for fetched launcher metadata.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory, for CLI usage
//   - [RedisCache]: shared cache for multiple server instances
//   - [NullCache]: disables caching
//
// # Keys
//
// Keys are built by a [Keyer] so every caller agrees on the layout:
//
//	k := cache.NewDefaultKeyer()
//	k.ManifestKey(url)   // manifest:<sha256(url)>
//	k.VersionKey("1.16.5")  // version:1.16.5
//
// Use [NewScopedKeyer] to keep entries from different manifest mirrors apart.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional time-to-live.
//
// Get reports a miss with ok=false and a nil error; expired entries are
// misses. A ttl of zero stores the entry without expiry.
// Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// Keyer builds cache keys for metadata documents.
type Keyer interface {
	// ManifestKey is the key of the manifest fetched from manifestURL.
	ManifestKey(manifestURL string) string
	// VersionKey is the key of the version document of release id.
	VersionKey(id string) string
	// ArchiveKey is the key of the version document extracted from the
	// archive at archiveURL.
	ArchiveKey(archiveURL string) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard [Keyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ManifestKey hashes the URL so keys stay short and filesystem safe.
func (DefaultKeyer) ManifestKey(manifestURL string) string {
	return hashKey("manifest", manifestURL)
}

// VersionKey uses the id verbatim; ids are validated before they reach here.
func (DefaultKeyer) VersionKey(id string) string {
	return "version:" + id
}

// ArchiveKey hashes the archive URL.
func (DefaultKeyer) ArchiveKey(archiveURL string) string {
	return hashKey("zipped", archiveURL)
}
