package metadata

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/observability"
	"github.com/matzehuels/mcmeta/pkg/store"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

type cacheRecorder struct{ recorder }

func (r *cacheRecorder) OnCacheHit(_ context.Context, kind string)  { r.add("hit %s", kind) }
func (r *cacheRecorder) OnCacheMiss(_ context.Context, kind string) { r.add("miss %s", kind) }
func (r *cacheRecorder) OnCacheSet(_ context.Context, kind string, err error) {
	r.add("set %s %v", kind, err)
}

type syncRecorder struct {
	recorder
	runs []string
}

func (r *syncRecorder) OnSyncStart(_ context.Context, runID string, versions int) {
	r.runs = append(r.runs, runID)
	r.add("start %d", versions)
}

func (r *syncRecorder) OnVersionSynced(_ context.Context, _, id string, fetched bool, _ time.Duration, err error) {
	r.add("version %s fetched=%t failed=%t", id, fetched, err != nil)
}

func (r *syncRecorder) OnSyncComplete(_ context.Context, runID string, fetched, skipped, failed int, _ time.Duration) {
	r.runs = append(r.runs, runID)
	r.add("complete %d/%d/%d", fetched, skipped, failed)
}

func TestCacheHooks(t *testing.T) {
	hooks := &cacheRecorder{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	f := newFakeFetcher("1.16.5")
	s := newTestService(t, f, Options{})

	for range 2 {
		if _, err := s.Version(ctx, "1.16.5", false); err != nil {
			t.Fatalf("Version: %v", err)
		}
	}

	want := []string{
		"miss version",
		"miss manifest",
		"set manifest <nil>",
		"set version <nil>",
		"hit version",
	}
	if got := hooks.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestCacheHooks_WriteFailure(t *testing.T) {
	hooks := &cacheRecorder{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	s := newTestService(t, newFakeFetcher("1.16.5"), Options{Cache: brokenCache{}})
	if _, err := s.Manifest(context.Background(), true); err != nil {
		t.Fatalf("Manifest: %v", err)
	}

	got := hooks.list()
	if len(got) != 1 || got[0] == "set manifest <nil>" {
		t.Errorf("events = %v, want one failed manifest write", got)
	}
}

func TestSyncHooks(t *testing.T) {
	hooks := &syncRecorder{}
	observability.SetSyncHooks(hooks)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	f := newFakeFetcher("1.16.5", "1.16.4")
	f.failNext(versionURL("1.16.4"), errs.HTTPStatus(versionURL("1.16.4"), 404))
	s := newTestService(t, f, Options{Store: store.NewMemoryStore()})

	res, err := s.Sync(ctx, SyncOptions{Concurrency: 1})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	want := []string{
		"start 2",
		"version 1.16.5 fetched=true failed=false",
		"version 1.16.4 fetched=false failed=true",
		"complete 1/0/1",
	}
	if got := hooks.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if len(hooks.runs) != 2 || hooks.runs[0] != res.RunID || hooks.runs[1] != res.RunID {
		t.Errorf("run ids = %v, want %s twice", hooks.runs, res.RunID)
	}
}
