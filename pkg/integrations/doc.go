// Package integrations provides HTTP plumbing for publisher metadata APIs.
//
// # Overview
//
// This package contains the low-level request logic shared by the publisher
// clients. Each publisher has its own subpackage:
//
//   - [mojang]: Minecraft version manifest and version documents
//
// # Client Pattern
//
// Publisher clients embed [Client] and expose typed fetch methods:
//
//	client := mojang.NewClient()
//	manifest, err := client.FetchManifest(ctx)
//
// [Client] handles:
//   - A single HTTP GET per call, with default headers
//   - Classification of failures into coded errors (transport vs. status)
//   - Exposing the final URL after redirects
//
// It never retries and never caches. Retry policy and caching belong to the
// caller; see [github.com/matzehuels/mcmeta/pkg/metadata].
//
// # Adding a New Publisher
//
//  1. Create a subpackage: pkg/integrations/<publisher>/
//  2. Define document structs matching the publisher schema
//  3. Implement a Client embedding [Client] with Fetch methods
//  4. Validate every document before returning it
//
// [mojang]: github.com/matzehuels/mcmeta/pkg/integrations/mojang
package integrations
