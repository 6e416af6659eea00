package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

type manifestOptions struct {
	json    bool
	refresh bool
	types   []string
	limit   int
}

// manifestCommand creates the manifest command.
func (c *CLI) manifestCommand() *cobra.Command {
	opts := manifestOptions{limit: 20}

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Show the version manifest",
		Long: `Fetch the launcher version manifest and list its releases, newest first.

With --json the validated manifest is printed as JSON and the list flags are ignored.`,
		Example: `  mcmeta manifest
  mcmeta manifest --type release --limit 5
  mcmeta manifest --json > version_manifest.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := c.newService(ctx, serviceOptions{})
			if err != nil {
				return err
			}
			defer closeFn()

			sp := newSpinner(ctx, cmd.ErrOrStderr(), "Fetching manifest...")
			sp.Start()
			prog := newProgress(c.Logger)
			m, err := svc.Manifest(ctx, opts.refresh)
			sp.Stop()
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Loaded manifest with %d versions", len(m.Versions)))

			if opts.json {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			printManifest(cmd.OutOrStdout(), m, opts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print the manifest as JSON")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the cache")
	cmd.Flags().StringSliceVar(&opts.types, "type", nil, "only list these release types (release, snapshot, old_beta, old_alpha)")
	cmd.Flags().IntVar(&opts.limit, "limit", opts.limit, "list at most N versions (0 for all)")

	return cmd
}

func printManifest(w io.Writer, m *mojang.VersionManifest, opts manifestOptions) {
	printTitle(w, "Version manifest")
	printKeyValue(w, "Latest", m.Latest.Release)
	printKeyValue(w, "Snapshot", m.Latest.Snapshot)
	printKeyValue(w, "Versions", StyleNumber.Render(fmt.Sprint(len(m.Versions))))
	fmt.Fprintln(w)

	shown := 0
	for _, v := range m.Versions {
		if len(opts.types) > 0 && !slices.Contains(opts.types, v.Type) {
			continue
		}
		if opts.limit > 0 && shown == opts.limit {
			printDetail(w, "... use --limit 0 to list all")
			break
		}
		fmt.Fprintf(w, "  %-24s %-18s %s\n", v.ID, renderType(v.Type), StyleDim.Render(v.ReleaseTime.Format("2006-01-02")))
		shown++
	}
	if shown == 0 {
		printInfo(w, "No versions match")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
