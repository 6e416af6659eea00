// Package store persists fetched launcher metadata.
//
// A [Store] keeps the most recent version manifest and one version document
// per release id. Documents are stored only after they passed validation, so
// everything read back from a store is trusted.
//
// Backends:
//
//   - [MemoryStore]: process-local, for tests and the serve command without
//     persistence
//   - [FileStore]: JSON files under a directory
//   - [MongoStore]: a MongoDB database shared by several instances
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/mcmeta/pkg/config"
	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

// ErrNotFound is returned when the requested manifest or version is not
// stored. It carries the NOT_FOUND code.
var ErrNotFound = errs.New(errs.ErrCodeNotFound, "not found in store")

// Store persists manifests and version documents.
// Implementations are safe for concurrent use.
type Store interface {
	// PutManifest replaces the latest manifest.
	PutManifest(ctx context.Context, m *mojang.VersionManifest) error
	// LatestManifest returns the most recently stored manifest.
	LatestManifest(ctx context.Context) (*mojang.VersionManifest, error)
	// PutVersion inserts or replaces the document keyed by doc.ID.
	PutVersion(ctx context.Context, doc *mojang.VersionDocument) error
	// GetVersion returns the document for id.
	GetVersion(ctx context.Context, id string) (*mojang.VersionDocument, error)
	// ListVersions returns the stored ids in ascending order.
	ListVersions(ctx context.Context) ([]string, error)
	Close() error
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreFile:
		return NewFileStore(cfg.Dir)
	case config.StoreMongo:
		return DialMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
}

func versionNotFound(id string) error {
	return fmt.Errorf("version %s: %w", id, ErrNotFound)
}

func manifestNotFound() error {
	return fmt.Errorf("manifest: %w", ErrNotFound)
}

// checkID rejects ids that cannot be used as keys.
func checkID(id string) error {
	return errs.ValidateVersionID(id)
}

// clone returns a deep copy of v through its JSON form.
func clone[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
