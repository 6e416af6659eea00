package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/metadata"
)

// errSyncIncomplete is returned when some versions could not be mirrored.
var errSyncIncomplete = errors.New("sync incomplete")

type syncOptions struct {
	concurrency int
	types       []string
	limit       int
	refresh     bool
}

// syncCommand creates the sync command.
func (c *CLI) syncCommand() *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the manifest and version documents into the store",
		Long: `Fetch a fresh manifest and store it together with the version document of
every selected release, downloading several documents at once. Releases
already in the store are skipped unless --refresh is given.

Zipped releases from the config file are mirrored when no --type filter is set.
A failing release does not stop the run; the command exits with status 4 if
any release failed.`,
		Example: `  mcmeta sync
  mcmeta sync --type release --limit 10
  mcmeta sync --concurrency 16 --refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("concurrency") {
				opts.concurrency = c.cfg.Sync.Concurrency
			}
			if opts.concurrency < 1 {
				return errs.New(errs.ErrCodeInvalidInput, "--concurrency must be at least 1")
			}

			ctx := cmd.Context()
			svc, closeFn, err := c.newService(ctx, serviceOptions{withStore: true})
			if err != nil {
				return err
			}
			defer closeFn()

			sp := newSpinner(ctx, cmd.ErrOrStderr(), "Syncing...")
			sp.Start()
			var finished atomic.Int64
			res, err := svc.Sync(ctx, metadata.SyncOptions{
				Concurrency: opts.concurrency,
				Types:       opts.types,
				Limit:       opts.limit,
				Refresh:     opts.refresh,
				OnVersion: func(id string, _ error) {
					sp.Update(fmt.Sprintf("Syncing... %d done, last %s", finished.Add(1), id))
				},
			})
			sp.Stop()
			if res != nil {
				printSyncResult(cmd.OutOrStdout(), res)
			}
			if err != nil {
				return err
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%w: %d of %d versions failed", errSyncIncomplete,
					len(res.Failed), len(res.Fetched)+len(res.Skipped)+len(res.Failed))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "parallel downloads (default from config)")
	cmd.Flags().StringSliceVar(&opts.types, "type", nil, "only sync these release types (release, snapshot, old_beta, old_alpha)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "only sync the N newest matching versions (0 for all)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-download versions already in the store")

	return cmd
}

func printSyncResult(w io.Writer, res *metadata.SyncResult) {
	switch {
	case len(res.Failed) == 0:
		printSuccess(w, "Synced %d versions (latest release %s)", len(res.Fetched), res.Latest.Release)
	case len(res.Fetched) == 0:
		printError(w, "Sync failed for %d versions", len(res.Failed))
	default:
		printWarning(w, "Synced %d versions, %d failed", len(res.Fetched), len(res.Failed))
	}
	printStats(w,
		stat{len(res.Fetched), "fetched"},
		stat{len(res.Skipped), "already stored"},
		stat{len(res.Failed), "failed"},
	)
	printDetail(w, "run %s in %s", res.RunID, res.Duration.Round(time.Millisecond))

	ids := make([]string, 0, len(res.Failed))
	for id := range res.Failed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		printError(w, "%s: %s", id, errs.UserMessage(res.Failed[id]))
	}
	if len(res.Fetched) > 0 {
		printNextStep(w, "Serve the mirror", appName+" serve")
	}
}
