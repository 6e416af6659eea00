package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/mcmeta/internal/api"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve launcher metadata over HTTP",
		Long: `Start a read-only HTTP API over the manifest, version documents and the store.

Endpoints:
  GET /healthz
  GET /v1/manifest[?refresh=true]
  GET /v1/versions/{id}[?refresh=true]
  GET /v1/stored
  GET /v1/stored/{id}

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = c.cfg.Server.Addr
			}

			ctx := cmd.Context()
			svc, closeFn, err := c.newService(ctx, serviceOptions{withStore: true})
			if err != nil {
				return err
			}
			defer closeFn()

			router := api.NewServer(svc, api.WithLogger(c.Logger))
			return api.Serve(ctx, addr, router, c.Logger, nil)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from config)")

	return cmd
}
