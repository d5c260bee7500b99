package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/display"
	"github.com/zheng/codekg/internal/graph"
)

func searchCmd() *cobra.Command {
	var (
		limit  int
		kind   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search stored nodes by name or id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			var kindFilter graph.NodeKind
			if kind != "" {
				if kindFilter, err = graph.ParseNodeKind(kind); err != nil {
					return err
				}
			}

			db, err := openDB(cfg.DB, false)
			if err != nil {
				return err
			}
			defer db.Close()

			// filter by kind before applying the limit
			nodes, err := db.FindNodesByPattern(args[0], 0)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			var matches []graph.Node
			for _, n := range nodes {
				if kind != "" && n.Kind != kindFilter {
					continue
				}
				matches = append(matches, n)
				if limit > 0 && len(matches) == limit {
					break
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				records := make([]graph.NodeRecord, len(matches))
				for i, n := range matches {
					records[i] = n.Record()
				}
				return outputJSON(out, records)
			}

			if len(matches) == 0 {
				fmt.Fprintf(out, "No nodes match %q\n", args[0])
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, n := range matches {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Kind, n.ID, display.Location(n))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results (0 = all)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "only nodes of this kind (function, class, file, ...)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}
