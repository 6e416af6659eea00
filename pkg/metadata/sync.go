package metadata

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
	"github.com/matzehuels/mcmeta/pkg/observability"
	"github.com/matzehuels/mcmeta/pkg/store"
)

const defaultSyncConcurrency = 8

// SyncOptions selects what [Service.Sync] mirrors.
type SyncOptions struct {
	// Concurrency bounds parallel downloads. Defaults to 8.
	Concurrency int
	// Types keeps only manifest entries of these release types. Empty keeps
	// all types and includes zipped releases.
	Types []string
	// Limit keeps only the first Limit manifest entries. Zero keeps all.
	Limit int
	// Refresh re-downloads versions that are already stored.
	Refresh bool
	// OnVersion, if set, is called after each version finishes. It may be
	// called from several goroutines at once.
	OnVersion func(id string, err error)
}

// SyncResult summarizes a [Service.Sync] run.
type SyncResult struct {
	RunID    string
	Latest   mojang.Latest
	Fetched  []string
	Skipped  []string
	Failed   map[string]error
	Duration time.Duration
}

// Sync fetches a fresh manifest and stores it together with the version
// document of every selected release.
//
// A failing release does not stop the run; its error is recorded in
// [SyncResult.Failed]. Sync itself fails only if the manifest cannot be
// fetched or stored, or ctx ends, in which case the partial result is
// returned alongside ctx.Err().
func (s *Service) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if s.store == nil {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "sync requires a store")
	}
	start := time.Now()
	res := &SyncResult{
		RunID:  uuid.NewString(),
		Failed: make(map[string]error),
	}
	logger := s.logger.With("run", res.RunID)

	m, err := s.Manifest(ctx, true)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutManifest(ctx, m); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "store manifest")
	}
	res.Latest = m.Latest

	targets := s.syncTargets(m, opts)
	logger.Info("sync started", "versions", len(targets), "latest", m.Latest.Release)
	hooks := observability.Sync()
	hooks.OnSyncStart(ctx, res.RunID, len(targets))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(cmpOr(opts.Concurrency, defaultSyncConcurrency))

	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			began := time.Now()
			fetched, err := s.syncOne(ctx, t, opts.Refresh)
			hooks.OnVersionSynced(ctx, res.RunID, t.id, fetched, time.Since(began), err)

			mu.Lock()
			switch {
			case err != nil:
				res.Failed[t.id] = err
				logger.Warn("sync version failed", "id", t.id, "err", err)
			case fetched:
				res.Fetched = append(res.Fetched, t.id)
				logger.Debug("synced version", "id", t.id)
			default:
				res.Skipped = append(res.Skipped, t.id)
			}
			mu.Unlock()

			if opts.OnVersion != nil {
				opts.OnVersion(t.id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(res.Fetched)
	slices.Sort(res.Skipped)
	res.Duration = time.Since(start)
	logger.Info("sync finished",
		"fetched", len(res.Fetched),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
		"took", res.Duration.Round(time.Millisecond))
	hooks.OnSyncComplete(ctx, res.RunID, len(res.Fetched), len(res.Skipped), len(res.Failed), res.Duration)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

type syncTarget struct {
	id     string
	url    string
	zipped bool
}

func (s *Service) syncTargets(m *mojang.VersionManifest, opts SyncOptions) []syncTarget {
	var targets []syncTarget
	for _, v := range m.Versions {
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, v.Type) {
			continue
		}
		targets = append(targets, syncTarget{id: v.ID, url: v.URL})
		if opts.Limit > 0 && len(targets) == opts.Limit {
			break
		}
	}
	if len(opts.Types) == 0 {
		ids := make([]string, 0, len(s.zipped))
		for id := range s.zipped {
			if _, listed := m.Find(id); !listed {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		for _, id := range ids {
			targets = append(targets, syncTarget{id: id, url: s.zipped[id], zipped: true})
		}
	}
	return targets
}

// syncOne stores the document of t and reports whether it was downloaded.
func (s *Service) syncOne(ctx context.Context, t syncTarget, refresh bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !refresh {
		_, err := s.store.GetVersion(ctx, t.id)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
	}

	var (
		doc *mojang.VersionDocument
		err error
	)
	if t.zipped {
		doc, err = s.fetchZipped(ctx, t.url)
	} else {
		doc, err = s.fetchVersion(ctx, t.url)
	}
	if err != nil {
		return false, err
	}
	if doc.ID != t.id {
		return false, errs.New(errs.ErrCodeValidation, "document id %q does not match release %q", doc.ID, t.id)
	}
	if err := s.store.PutVersion(ctx, doc); err != nil {
		return false, errs.Wrap(errs.ErrCodeInternal, err, "store version %s", t.id)
	}
	s.remember(ctx, kindVersion, s.keys.VersionKey(t.id), doc)
	return true, nil
}

func cmpOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
