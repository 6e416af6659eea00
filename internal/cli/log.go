// Package cli implements the mcmeta command-line interface.
//
// This package provides commands for fetching the launcher version manifest
// and version documents, mirroring them into a store, serving them over HTTP
// and managing the response cache. The CLI is built using cobra and logs via
// the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - manifest: List the releases in the version manifest
//   - version: Show one version document, by id or URL
//   - sync: Mirror the manifest and version documents into the store
//   - serve: Serve metadata over HTTP
//   - cache: Manage the response cache
//   - config: Show the effective configuration
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Logs go to
// stderr; command output goes to stdout so it can be piped.
//
// # Example
//
//	import "github.com/matzehuels/mcmeta/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(cli.ExitCode(err))
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mcmeta/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at debug level along with the elapsed time since progress
// was created, rounded to the millisecond.
// Example output: "Loaded 1.16.5 (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Debugf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// logHTTPHooks logs every publisher request at debug level.
type logHTTPHooks struct {
	observability.NoopHTTPHooks
	logger *log.Logger
}

func (h *logHTTPHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http", "method", method, "host", host, "path", path, "status", status, "took", d.Round(time.Millisecond))
}

func (h *logHTTPHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http failed", "method", method, "host", host, "path", path, "err", err)
}
