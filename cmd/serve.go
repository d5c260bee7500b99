package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/web"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored graph over HTTP",
		Long: `Start a web server with a JSON API over the stored graph and a small
viewer that renders node neighborhoods as Mermaid diagrams.

Endpoints:
  GET /api/graph                          whole graph
  GET /api/search?q=<pattern>&limit=<n>   nodes by name or id
  GET /api/node?id=<id>                   node with its edges
  GET /api/neighbors?id=<id>&direction=in&depth=2&kind=calls
  GET /api/impact?id=<id>&up=3&down=3
  GET /api/mermaid?id=<id>&depth=1
  GET /api/stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg.DB, false)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "🌐 http://localhost:%d\n", port)
			return web.NewServer(db, fmt.Sprintf(":%d", port), logger).Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	return cmd
}
