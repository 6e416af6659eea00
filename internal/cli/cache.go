package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mcmeta/pkg/cache"
	"github.com/matzehuels/mcmeta/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if c.cfg.Cache.Backend == config.CacheNone {
				printInfo(w, "Cache is disabled")
				return nil
			}

			ch, err := newCache(cmd.Context(), c.cfg.Cache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer ch.Close()

			clearer, ok := ch.(cache.Clearer)
			if !ok {
				return fmt.Errorf("%s cache cannot be cleared", c.cfg.Cache.Backend)
			}
			count, err := clearer.Clear(cmd.Context())
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo(w, "Cache is empty")
				return nil
			}
			printSuccess(w, "Cleared %d cached entries", count)
			printDetail(w, "%s", cacheLocation(c.cfg.Cache))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache lives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cacheLocation(c.cfg.Cache))
			return nil
		},
	}
}

func cacheLocation(cfg config.Cache) string {
	switch cfg.Backend {
	case config.CacheRedis:
		return "redis://" + cfg.RedisAddr
	case config.CacheNone:
		return "disabled"
	default:
		return cfg.Dir
	}
}
