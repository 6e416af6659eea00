package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

// MemoryStore keeps documents in process memory. Values are copied on the way
// in and out, so callers may mutate what they pass or receive.
type MemoryStore struct {
	mu       sync.RWMutex
	manifest *mojang.VersionManifest
	versions map[string]*mojang.VersionDocument
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{versions: make(map[string]*mojang.VersionDocument)}
}

func (s *MemoryStore) PutManifest(ctx context.Context, m *mojang.VersionManifest) error {
	cp, err := clone(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.manifest = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LatestManifest(ctx context.Context) (*mojang.VersionManifest, error) {
	s.mu.RLock()
	m := s.manifest
	s.mu.RUnlock()
	if m == nil {
		return nil, manifestNotFound()
	}
	return clone(m)
}

func (s *MemoryStore) PutVersion(ctx context.Context, doc *mojang.VersionDocument) error {
	if err := checkID(doc.ID); err != nil {
		return err
	}
	cp, err := clone(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.versions[doc.ID] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetVersion(ctx context.Context, id string) (*mojang.VersionDocument, error) {
	s.mu.RLock()
	doc, ok := s.versions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, versionNotFound(id)
	}
	return clone(doc)
}

func (s *MemoryStore) ListVersions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.versions))
	for id := range s.versions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

// Close does nothing.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
