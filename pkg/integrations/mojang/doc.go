// Package mojang provides an HTTP client for Minecraft launcher metadata.
//
// # Overview
//
// This package fetches the version manifest published at
// https://piston-meta.mojang.com, the per-release version documents it points
// to, and version documents that are only distributed inside zip archives
// (combat test and other experimental snapshots).
//
// # Usage
//
//	client := mojang.NewClient()
//
//	manifest, err := client.FetchManifest(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, ok := manifest.Find(manifest.Latest.Release)
//	doc, err := client.FetchVersion(ctx, summary.URL)
//
//	combat, err := client.FetchZippedVersion(ctx, "https://launcher.mojang.com/experiments/combat/610f5c9874ba8926d5ae1bcce647e5f0e6e7c889/1_14_combat-212796.zip")
//
// # Validation
//
// Every document is checked twice before it is returned: against an embedded
// JSON Schema, then against semantic rules the schema cannot express (latest
// pointers must reference listed releases, library names must be Maven
// coordinates). A body that is not JSON fails with MALFORMED_BODY and keeps
// the raw bytes; a document that parses but breaks a rule fails with
// VALIDATION_FAILED.
//
// # Archives
//
// [Client.FetchZippedVersion] writes the archive into its own temporary
// directory, reads the first entry whose name ends in ".json", and removes the
// directory before returning. Concurrent calls never share a directory.
//
// # Retries
//
// The client performs exactly one request per call. Wrap calls with
// [github.com/matzehuels/mcmeta/pkg/httputil.Retry] for retry behaviour.
package mojang
