package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mcmeta/pkg/cache"
	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

const fakeBase = "https://meta.test"

// fakeFetcher serves documents from memory and counts calls per URL.
type fakeFetcher struct {
	mu       sync.Mutex
	url      string
	manifest *mojang.VersionManifest
	docs     map[string]*mojang.VersionDocument // keyed by URL
	errs     map[string][]error                 // consumed front to back
	calls    map[string]int
}

func newFakeFetcher(ids ...string) *fakeFetcher {
	f := &fakeFetcher{
		url:      mojang.DefaultManifestURL,
		manifest: &mojang.VersionManifest{},
		docs:     make(map[string]*mojang.VersionDocument),
		errs:     make(map[string][]error),
		calls:    make(map[string]int),
	}
	for _, id := range ids {
		f.addVersion(id, mojang.TypeRelease)
	}
	if len(ids) > 0 {
		f.manifest.Latest = mojang.Latest{Release: ids[0], Snapshot: ids[0]}
	}
	return f
}

func versionURL(id string) string { return fakeBase + "/v1/packages/" + id + ".json" }
func archiveURL(id string) string { return fakeBase + "/zips/" + id + ".zip" }

func testDoc(id, typ string) *mojang.VersionDocument {
	return &mojang.VersionDocument{
		ID:          id,
		Type:        typ,
		MainClass:   "net.minecraft.client.main.Main",
		ReleaseTime: time.Date(2021, 1, 14, 16, 5, 32, 0, time.UTC),
		Libraries:   []mojang.Library{{Name: "com.mojang:patchy:1.3.9"}},
	}
}

func (f *fakeFetcher) addVersion(id, typ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifest.Versions = append(f.manifest.Versions, mojang.VersionSummary{
		ID: id, Type: typ, URL: versionURL(id),
	})
	f.docs[versionURL(id)] = testDoc(id, typ)
}

func (f *fakeFetcher) addZipped(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[archiveURL(id)] = testDoc(id, "pending")
}

func (f *fakeFetcher) failNext(url string, failures ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = append(f.errs[url], failures...)
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) next(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if q := f.errs[url]; len(q) > 0 {
		f.errs[url] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeFetcher) ManifestURL() string { return f.url }

func (f *fakeFetcher) FetchManifest(context.Context) (*mojang.VersionManifest, error) {
	if err := f.next(f.url); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := *f.manifest
	m.Versions = append([]mojang.VersionSummary(nil), f.manifest.Versions...)
	return &m, nil
}

func (f *fakeFetcher) FetchVersion(_ context.Context, u string) (*mojang.VersionDocument, error) {
	return f.doc(u)
}

func (f *fakeFetcher) FetchZippedVersion(_ context.Context, u string) (*mojang.VersionDocument, error) {
	return f.doc(u)
}

func (f *fakeFetcher) doc(u string) (*mojang.VersionDocument, error) {
	if err := f.next(u); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[u]
	if !ok {
		return nil, errs.HTTPStatus(u, http.StatusNotFound)
	}
	cp := *d
	return &cp, nil
}

// brokenCache fails every operation.
type brokenCache struct{ cache.NullCache }

var errBroken = errors.New("cache unavailable")

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errBroken }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errBroken
}

func newTestService(t *testing.T, f Fetcher, opts Options) *Service {
	t.Helper()
	if opts.Cache == nil {
		c, err := cache.NewFileCache(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileCache: %v", err)
		}
		opts.Cache = c
	}
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}
	opts.RetryDelay = time.Millisecond
	opts.Logger = log.New(io.Discard)
	return New(f, opts)
}

func TestManifest_Cached(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher("1.16.5", "1.16.4")
	s := newTestService(t, f, Options{})

	for range 3 {
		m, err := s.Manifest(ctx, false)
		if err != nil {
			t.Fatalf("Manifest: %v", err)
		}
		if len(m.Versions) != 2 || m.Latest.Release != "1.16.5" {
			t.Fatalf("unexpected manifest: %+v", m)
		}
	}
	if n := f.count(f.url); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}

	if _, err := s.Manifest(ctx, true); err != nil {
		t.Fatalf("Manifest(refresh): %v", err)
	}
	if n := f.count(f.url); n != 2 {
		t.Errorf("fetches after refresh = %d, want 2", n)
	}
}

func TestManifest_NoCache(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher("1.16.5")
	s := newTestService(t, f, Options{Cache: cache.NewNullCache()})

	for range 2 {
		if _, err := s.Manifest(ctx, false); err != nil {
			t.Fatalf("Manifest: %v", err)
		}
	}
	if n := f.count(f.url); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestManifest_BrokenCacheIgnored(t *testing.T) {
	f := newFakeFetcher("1.16.5")
	s := newTestService(t, f, Options{Cache: brokenCache{}})

	m, err := s.Manifest(context.Background(), false)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if m.Latest.Release != "1.16.5" {
		t.Errorf("Latest.Release = %q", m.Latest.Release)
	}
}

func TestManifest_Retries(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		failures  []error
		wantCalls int
		wantCode  errs.Code
	}{
		{
			name:      "recovers from 503",
			retries:   2,
			failures:  []error{errs.HTTPStatus(fakeBase, 503), errs.HTTPStatus(fakeBase, 503)},
			wantCalls: 3,
		},
		{
			name:      "no retries configured",
			failures:  []error{errs.HTTPStatus(fakeBase, 503)},
			wantCalls: 1,
			wantCode:  errs.ErrCodeHTTPStatus,
		},
		{
			name:      "not retried on 404",
			retries:   3,
			failures:  []error{errs.HTTPStatus(fakeBase, 404)},
			wantCalls: 1,
			wantCode:  errs.ErrCodeHTTPStatus,
		},
		{
			name:      "not retried on malformed body",
			retries:   3,
			failures:  []error{errs.MalformedBody(fakeBase, []byte("<html>"), errors.New("invalid character"))},
			wantCalls: 1,
			wantCode:  errs.ErrCodeMalformedBody,
		},
		{
			name:      "exhausted",
			retries:   1,
			failures:  []error{errs.Transport(fakeBase, errors.New("reset")), errs.Transport(fakeBase, errors.New("reset"))},
			wantCalls: 2,
			wantCode:  errs.ErrCodeTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher("1.16.5")
			f.failNext(f.url, tt.failures...)
			s := newTestService(t, f, Options{Retries: tt.retries})

			_, err := s.Manifest(context.Background(), false)
			if tt.wantCode == "" && err != nil {
				t.Fatalf("Manifest: %v", err)
			}
			if tt.wantCode != "" && !errs.Is(err, tt.wantCode) {
				t.Fatalf("error = %v, want code %s", err, tt.wantCode)
			}
			if n := f.count(f.url); n != tt.wantCalls {
				t.Errorf("calls = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher("1.16.5", "1.16.4")
	s := newTestService(t, f, Options{})

	doc, err := s.Version(ctx, "1.16.4", false)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if doc.ID != "1.16.4" || doc.MainClass != "net.minecraft.client.main.Main" {
		t.Errorf("unexpected document: %+v", doc)
	}

	// Served from cache.
	if _, err := s.Version(ctx, "1.16.4", false); err != nil {
		t.Fatalf("Version (cached): %v", err)
	}
	if n := f.count(versionURL("1.16.4")); n != 1 {
		t.Errorf("version fetches = %d, want 1", n)
	}

	if _, err := s.Version(ctx, "1.16.4", true); err != nil {
		t.Fatalf("Version (refresh): %v", err)
	}
	if n := f.count(versionURL("1.16.4")); n != 2 {
		t.Errorf("version fetches after refresh = %d, want 2", n)
	}
}

func TestVersion_Zipped(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher("1.16.5")
	f.addZipped("1.14_combat-212796")
	s := newTestService(t, f, Options{
		Zipped: map[string]string{"1.14_combat-212796": archiveURL("1.14_combat-212796")},
	})

	doc, err := s.Version(ctx, "1.14_combat-212796", false)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if doc.ID != "1.14_combat-212796" {
		t.Errorf("ID = %q", doc.ID)
	}
	if n := f.count(f.url); n != 0 {
		t.Errorf("manifest fetched %d times for a zipped release", n)
	}
}

func TestVersion_NotListed(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher("1.16.4")
	s := newTestService(t, f, Options{})

	_, err := s.Version(ctx, "1.16.5", false)
	if !errs.Is(err, errs.ErrCodeNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}

	// The cached manifest is refreshed once when a release is missing.
	f.addVersion("1.16.5", mojang.TypeRelease)
	doc, err := s.Version(ctx, "1.16.5", false)
	if err != nil {
		t.Fatalf("Version after publish: %v", err)
	}
	if doc.ID != "1.16.5" {
		t.Errorf("ID = %q", doc.ID)
	}
	if n := f.count(f.url); n != 2 {
		t.Errorf("manifest fetches = %d, want 2", n)
	}
}

func TestVersion_InvalidID(t *testing.T) {
	s := newTestService(t, newFakeFetcher("1.16.5"), Options{})
	for _, id := range []string{"", "../etc/passwd", "a/b"} {
		if _, err := s.Version(context.Background(), id, false); !errs.Is(err, errs.ErrCodeInvalidInput) {
			t.Errorf("Version(%q) error = %v, want INVALID_INPUT", id, err)
		}
	}
}

func TestVersion_ErrorsPropagate(t *testing.T) {
	f := newFakeFetcher("1.16.5")
	f.failNext(versionURL("1.16.5"), errs.Validation(versionURL("1.16.5"), errors.New("missing mainClass")))
	s := newTestService(t, f, Options{Retries: 3})

	_, err := s.Version(context.Background(), "1.16.5", false)
	if !errs.Is(err, errs.ErrCodeValidation) {
		t.Fatalf("error = %v, want VALIDATION_FAILED", err)
	}
	if n := f.count(versionURL("1.16.5")); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	// Failures are not cached.
	doc, err := s.Version(context.Background(), "1.16.5", false)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if doc.ID != "1.16.5" {
		t.Errorf("ID = %q", doc.ID)
	}
}

func TestVersionByURL(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher("1.16.5")
	f.addZipped("1.14_combat-0")
	s := newTestService(t, f, Options{})

	doc, err := s.VersionByURL(ctx, versionURL("1.16.5"), false)
	if err != nil || doc.ID != "1.16.5" {
		t.Fatalf("VersionByURL = %v, %v", doc, err)
	}

	for range 2 {
		doc, err = s.VersionByURL(ctx, archiveURL("1.14_combat-0"), true)
		if err != nil || doc.ID != "1.14_combat-0" {
			t.Fatalf("VersionByURL(zipped) = %v, %v", doc, err)
		}
	}
	if n := f.count(archiveURL("1.14_combat-0")); n != 1 {
		t.Errorf("archive fetches = %d, want 1", n)
	}
}

func TestNew_MirrorKeys(t *testing.T) {
	f := newFakeFetcher()
	official := New(f, Options{Logger: log.New(io.Discard)})

	mirror := newFakeFetcher()
	mirror.url = "https://mirror.test/mc/version_manifest_v2.json"
	scoped := New(mirror, Options{Logger: log.New(io.Discard)})

	if a, b := official.keys.VersionKey("1.16.5"), scoped.keys.VersionKey("1.16.5"); a == b {
		t.Errorf("mirror shares version key %q with the official endpoint", a)
	}
	if got := official.keys.VersionKey("1.16.5"); got != "version:1.16.5" {
		t.Errorf("VersionKey = %q", got)
	}
}

func TestService_Concurrent(t *testing.T) {
	ctx := context.Background()
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("1.%d", i)
	}
	f := newFakeFetcher(ids...)
	s := newTestService(t, f, Options{})

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			doc, err := s.Version(ctx, id, false)
			if err != nil {
				t.Errorf("Version(%s): %v", id, err)
				return
			}
			if doc.ID != id {
				t.Errorf("Version(%s).ID = %q", id, doc.ID)
			}
		}(ids[i%len(ids)])
	}
	wg.Wait()
}
