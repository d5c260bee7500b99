package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/storage"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg.DB, false)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.GetStats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", cfg.DB)
			scan, err := db.LatestScan()
			switch {
			case err == nil:
				fmt.Fprintf(out, "Scan:     %s (%s) over %s\n",
					scan.ID, scan.CreatedAt.Local().Format("2006-01-02 15:04:05"), strings.Join(scan.Roots, ", "))
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}

			fmt.Fprintf(out, "\nNodes: %d\n", stats.Nodes)
			printCounts(cmd, stats.NodesByKind)
			fmt.Fprintf(out, "\nEdges: %d\n", stats.Edges)
			printCounts(cmd, stats.EdgesByKind)
			return nil
		},
	}
}

func printCounts(cmd *cobra.Command, counts map[string]int64) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %d\n", k, counts[k])
	}
}
