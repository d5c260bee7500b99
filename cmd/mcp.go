package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var rescan bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP (Model Context Protocol) server on stdio",
		Long: `Start an MCP server so coding assistants can query the stored graph.

Tools:
  - search:    find nodes by name or id
  - node:      one node with its metadata and edge counts
  - neighbors: nodes connected to a node, as a tree
  - impact:    callers and callees of a symbol before it is changed
  - stats:     graph summary
  - rescan:    rescan the configured paths (with --rescan)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg.DB, rescan)
			if err != nil {
				return err
			}
			defer db.Close()

			opts := []mcp.Option{mcp.WithLogger(logger)}
			if rescan {
				opts = append(opts, mcp.WithRescan(func(ctx context.Context) (string, int, int, error) {
					scanID, g, err := scanAndSave(cfg, logger, db)
					if err != nil {
						return "", 0, 0, err
					}
					return scanID, g.NodeCount(), g.EdgeCount(), nil
				}))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return mcp.NewServer(db, Version, opts...).Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&rescan, "rescan", false, "expose a rescan tool over the configured paths")
	return cmd
}
