package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

type versionOptions struct {
	json    bool
	refresh bool
	url     string
	zipped  bool
}

// versionCommand creates the version command.
func (c *CLI) versionCommand() *cobra.Command {
	var opts versionOptions

	cmd := &cobra.Command{
		Use:   "version [id]",
		Short: "Show a version document",
		Long: `Fetch and validate the version document of a release.

The release is looked up by id in the manifest, or in the zipped releases of
the config file. With --url the document is fetched from the given URL instead;
add --zipped when the URL points at a zip archive holding the document.`,
		Example: `  mcmeta version 1.16.5
  mcmeta version 1.16.5 --json
  mcmeta version --zipped --url https://launcher.mojang.com/experiments/combat/610f5c9874ba8926d5ae1bcce647e5f0e6e7c889/1_14_combat-212796.zip`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1 && opts.url != "":
				return errs.New(errs.ErrCodeInvalidInput, "give either a version id or --url, not both")
			case len(args) == 0 && opts.url == "":
				return errs.New(errs.ErrCodeInvalidInput, "a version id or --url is required")
			case opts.zipped && opts.url == "":
				return errs.New(errs.ErrCodeInvalidInput, "--zipped requires --url")
			}

			ctx := cmd.Context()
			svc, closeFn, err := c.newService(ctx, serviceOptions{})
			if err != nil {
				return err
			}
			defer closeFn()

			label := opts.url
			if len(args) == 1 {
				label = args[0]
			}
			sp := newSpinner(ctx, cmd.ErrOrStderr(), "Fetching "+label+"...")
			sp.Start()
			prog := newProgress(c.Logger)

			var doc *mojang.VersionDocument
			if opts.url != "" {
				doc, err = svc.VersionByURL(ctx, opts.url, opts.zipped)
			} else {
				doc, err = svc.Version(ctx, args[0], opts.refresh)
			}
			sp.Stop()
			if err != nil {
				return err
			}
			prog.done("Loaded " + doc.ID)

			if opts.json {
				return writeJSON(cmd.OutOrStdout(), doc)
			}
			printVersion(cmd.OutOrStdout(), doc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print the document as JSON")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the cache")
	cmd.Flags().StringVar(&opts.url, "url", "", "fetch the document from this URL")
	cmd.Flags().BoolVar(&opts.zipped, "zipped", false, "the --url points at a zip archive")

	return cmd
}

func printVersion(w io.Writer, d *mojang.VersionDocument) {
	printTitle(w, d.ID)
	printKeyValue(w, "Type", renderType(d.Type))
	printKeyValue(w, "Main class", d.MainClass)
	if !d.ReleaseTime.IsZero() {
		printKeyValue(w, "Released", d.ReleaseTime.Format("2006-01-02 15:04 MST"))
	}
	if d.InheritsFrom != "" {
		printKeyValue(w, "Inherits", d.InheritsFrom)
	}
	if d.JavaVersion != nil {
		printKeyValue(w, "Java", fmt.Sprintf("%d (%s)", d.JavaVersion.MajorVersion, d.JavaVersion.Component))
	}
	if d.AssetIndex != nil {
		printKeyValue(w, "Assets", d.AssetIndex.ID)
	}
	printKeyValue(w, "Libraries", StyleNumber.Render(fmt.Sprint(len(d.Libraries))))
	if len(d.Arguments) > 0 {
		printKeyValue(w, "Arguments", "modern")
	} else if d.MinecraftArguments != "" {
		printKeyValue(w, "Arguments", "legacy")
	}

	names := make([]string, 0, len(d.Downloads))
	for name := range d.Downloads {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		dl := d.Downloads[name]
		printDetail(w, "%-16s %s", name, humanBytes(dl.Size))
		fmt.Fprintln(w, "    "+StyleLink.Render(dl.URL))
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
