// Package httputil provides retry helpers for callers of the metadata clients.
//
// # Overview
//
// The publisher clients in [github.com/matzehuels/mcmeta/pkg/integrations]
// perform exactly one request per call. Callers that want to ride out
// transient failures wrap calls with [Retry]:
//
//	doc, err := httputil.RetryValue(ctx, 3, time.Second, func() (*mojang.VersionDocument, error) {
//	    return client.FetchVersion(ctx, url)
//	})
//
// # What Is Retried
//
//   - TRANSPORT_ERROR, unless caused by context cancellation
//   - HTTP_STATUS with a 5xx or 429 status
//   - any error wrapped in [RetryableError]
//
// Malformed bodies, validation failures and archive errors are never retried:
// fetching the same document again yields the same result.
//
// # Backoff
//
// The delay starts at the given value and doubles after each failed attempt.
// [RetryWithBackoff] uses 3 attempts and a 1 second initial delay.
package httputil
