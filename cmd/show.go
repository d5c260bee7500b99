package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/display"
	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/storage"
)

func showCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <node-id>",
		Short: "Show a stored node with its edges",
		Args:  cobra.ExactArgs(1),
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

			n, err := db.GetNode(args[0])
			if err != nil {
				return err
			}
			out, err := db.Neighbors(n.ID, storage.Outgoing)
			if err != nil {
				return err
			}
			in, err := db.Neighbors(n.ID, storage.Incoming)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return outputJSON(w, struct {
					Node     graph.NodeRecord   `json:"node"`
					Outgoing []graph.EdgeRecord `json:"outgoing"`
					Incoming []graph.EdgeRecord `json:"incoming"`
				}{n.Record(), edgeRecords(out), edgeRecords(in)})
			}

			fmt.Fprintf(w, "%s\n", n.ID)
			fmt.Fprintf(w, "  name: %s\n  kind: %s\n", n.Name, n.Kind)
			for _, p := range n.Meta.Pairs() {
				fmt.Fprintf(w, "  %s: %s\n", p.Key, p.Value)
			}
			printEdges(w, "Outgoing", "→", out)
			printEdges(w, "Incoming", "←", in)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printEdges(w io.Writer, title, arrow string, neighbors []storage.Neighbor) {
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(neighbors))
	for _, nb := range neighbors {
		fmt.Fprintf(w, "  %s %-10s %s", arrow, nb.Edge.Kind, nb.Node.ID)
		if line, ok := nb.Edge.Meta.Get("line"); ok {
			fmt.Fprintf(w, "  (line %s)", line)
		}
		fmt.Fprintf(w, "  %s\n", display.Location(nb.Node))
	}
}

func edgeRecords(neighbors []storage.Neighbor) []graph.EdgeRecord {
	records := make([]graph.EdgeRecord, len(neighbors))
	for i, nb := range neighbors {
		records[i] = nb.Edge.Record()
	}
	return records
}
