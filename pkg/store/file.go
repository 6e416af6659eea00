package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

const (
	manifestFile = "version_manifest.json"
	versionsDir  = "versions"
	jsonExt      = ".json"
)

// FileStore keeps documents as indented JSON files:
//
//	<dir>/version_manifest.json
//	<dir>/versions/<id>.json
//
// Files are replaced atomically, so readers never see a partial document.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, versionsDir), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) PutManifest(ctx context.Context, m *mojang.VersionManifest) error {
	return s.write(ctx, filepath.Join(s.dir, manifestFile), m)
}

func (s *FileStore) LatestManifest(ctx context.Context) (*mojang.VersionManifest, error) {
	var m mojang.VersionManifest
	if err := s.read(ctx, filepath.Join(s.dir, manifestFile), &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, manifestNotFound()
		}
		return nil, err
	}
	return &m, nil
}

func (s *FileStore) PutVersion(ctx context.Context, doc *mojang.VersionDocument) error {
	if err := checkID(doc.ID); err != nil {
		return err
	}
	return s.write(ctx, s.versionPath(doc.ID), doc)
}

func (s *FileStore) GetVersion(ctx context.Context, id string) (*mojang.VersionDocument, error) {
	if checkID(id) != nil {
		return nil, versionNotFound(id)
	}
	var doc mojang.VersionDocument
	if err := s.read(ctx, s.versionPath(id), &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, versionNotFound(id)
		}
		return nil, err
	}
	return &doc, nil
}

func (s *FileStore) ListVersions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, versionsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, jsonExt) || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, jsonExt))
	}
	slices.Sort(ids)
	return ids, nil
}

// Close does nothing.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) versionPath(id string) string {
	return filepath.Join(s.dir, versionsDir, id+jsonExt)
}

func (s *FileStore) read(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *FileStore) write(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ Store = (*FileStore)(nil)
