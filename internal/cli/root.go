package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mcmeta/pkg/buildinfo"
	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/observability"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The configuration is loaded once, before any subcommand runs, from --config
// (or the default location) and the environment. Global flags override it:
//   - --verbose (-v): debug logging
//   - --no-cache: bypass the response cache
//   - --retries N: retry transient failures N extra times
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "mcmeta fetches and mirrors Minecraft launcher metadata",
		Long: `mcmeta fetches the Minecraft launcher version manifest and version documents,
validates them, and can mirror them into a local store or serve them over HTTP.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
				observability.SetHTTPHooks(&logHTTPHooks{logger: c.Logger})
			}
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/mcmeta/config.toml)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&c.noCache, "no-cache", false, "bypass the response cache")
	flags.IntVar(&c.retries, "retries", -1, "extra attempts for transient failures (default from config)")

	root.AddCommand(c.manifestCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.syncCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// ExitCode maps a command error to the process exit status:
//   - 0: success
//   - 1: fetch, archive or internal failure
//   - 2: invalid input or configuration
//   - 3: release not found
//   - 4: sync finished with failed versions
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.Is(err, errs.ErrCodeInvalidInput), errs.Is(err, errs.ErrCodeInvalidConfig):
		return 2
	case errs.Is(err, errs.ErrCodeNotFound):
		return 3
	case errors.Is(err, errSyncIncomplete):
		return 4
	default:
		return 1
	}
}
