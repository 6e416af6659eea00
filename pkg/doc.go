// Package pkg provides the libraries behind mcmeta, a fetcher and mirror for
// Minecraft launcher metadata.
//
// # Overview
//
// The launcher learns about releases from two kinds of JSON documents: the
// version manifest, which lists every release, and one version document per
// release describing how to run it. A few experimental releases only ship
// their version document inside a zip archive. The pkg directory is organized
// into these areas:
//
//  1. [integrations/mojang] - Fetch, decode and validate the documents
//  2. [metadata] - Caching, retries and bulk mirroring on top of the client
//  3. [cache] and [store] - Response cache and durable document store
//  4. [config] and [errors] - Settings and the coded error taxonomy
//
// # Architecture
//
// The typical data flow:
//
//	Publisher (piston-meta.mojang.com, archive hosts)
//	         ↓
//	    [integrations/mojang] (one GET, decode, schema validation)
//	         ↓
//	    [metadata] (retry policy, cache lookups, id resolution)
//	         ↓
//	    [store] (manifest + version documents), CLI or HTTP API
//
// # Quick Start
//
// Fetch the manifest and one version document:
//
//	client := mojang.NewClient()
//	m, err := client.FetchManifest(ctx)
//	if err != nil {
//	    return err
//	}
//	summary, _ := m.Find(m.Latest.Release)
//	doc, err := client.FetchVersion(ctx, summary.URL)
//
// Extract a version document published as an archive:
//
//	doc, err := client.FetchZippedVersion(ctx, archiveURL)
//
// Mirror everything into a directory:
//
//	st, _ := store.NewFileStore(dir)
//	svc := metadata.New(client, metadata.Options{Store: st})
//	res, err := svc.Sync(ctx, metadata.SyncOptions{Concurrency: 8})
//
// # Errors
//
// Every failure carries a code from [errors] so callers can tell a network
// problem from a publisher outage or a broken document:
//
//	switch errors.GetCode(err) {
//	case errors.ErrCodeTransport, errors.ErrCodeHTTPStatus:
//	    // retry later
//	case errors.ErrCodeMalformedBody, errors.ErrCodeValidation:
//	    // the publisher served something unusable
//	}
//
// # Package Organization
//
// [integrations] - Shared HTTP client: default headers and failure
// classification. Never retries, never caches.
//
// [integrations/mojang] - Manifest fetcher, version document fetcher and
// archived version extractor.
//
// [httputil] - Retry helpers with exponential backoff for retryable errors.
//
// [metadata] - The service used by the CLI and the HTTP API.
//
// [cache] - File, Redis and no-op response caches keyed by document kind.
//
// [store] - Memory, file and MongoDB document stores.
//
// [observability] - Hooks for publisher requests, cache lookups and sync runs.
//
// [buildinfo] - Version information and the User-Agent header.
//
// # Testing
//
// Run tests:
//
//	go test ./...                              # All tests
//	go test ./pkg/integrations/mojang/...      # Specific package
//	go test -tags integration ./pkg/...        # Include live publisher tests
//
// [integrations]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/integrations
// [integrations/mojang]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/integrations/mojang
// [metadata]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/metadata
// [cache]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/mcmeta/pkg/buildinfo
package pkg
