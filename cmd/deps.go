package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/display"
	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/storage"
)

func depsCmd() *cobra.Command {
	var (
		direction string
		depth     int
		kinds     []string
	)

	cmd := &cobra.Command{
		Use:   "deps <node-id>",
		Short: "Print the dependency tree of a stored node",
		Long: `Print the nodes reachable from a node as a tree.

Examples:
  codekg deps symbol:app.py:main --kind calls          # what main calls
  codekg deps symbol:any:load --direction in --depth 3  # who calls load, three levels up
  codekg deps file:app.py --kind imports,reads          # modules and resources of a file`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			dir, err := storage.ParseDirection(direction)
			if err != nil {
				return err
			}
			edgeKinds := make([]graph.EdgeKind, 0, len(kinds))
			for _, label := range kinds {
				k, err := graph.ParseEdgeKind(label)
				if err != nil {
					return err
				}
				edgeKinds = append(edgeKinds, k)
			}

			db, err := openDB(cfg.DB, false)
			if err != nil {
				return err
			}
			defer db.Close()

			root, err := db.GetNode(args[0])
			if err != nil {
				return err
			}
			tree, err := db.NeighborTree(root.ID, dir, depth, edgeKinds...)
			if err != nil {
				return fmt.Errorf("neighbor tree: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📍 %s  %s\n", root.ID, display.Location(root))
			if len(tree) == 0 {
				fmt.Fprintln(out, "└── (none)")
				return nil
			}
			fmt.Fprint(out, display.FormatTree(tree))
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "out", "out follows edges from the node, in follows edges into it")
	cmd.Flags().IntVar(&depth, "depth", 1, "levels to expand (0 = unlimited)")
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "edge kinds to follow (default all)")

	return cmd
}
