package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/export"
)

func exportCmd() *cobra.Command {
	var (
		format    string
		output    string
		project   string
		noMermaid bool
		topCalled int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored graph",
		Long: `Render the graph saved by the last "scan --save" without rescanning.
The markdown format is a per-file reference document meant as context for
coding assistants.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			fmtName, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			db, err := openDB(cfg.DB, false)
			if err != nil {
				return err
			}
			defer db.Close()

			g, err := db.LoadGraph()
			if err != nil {
				return fmt.Errorf("load graph: %w", err)
			}

			w, closeOut, err := openOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			if fmtName == export.FormatMarkdown {
				opts := export.DefaultMarkdownOptions()
				if project != "" {
					opts.ProjectName = project
				} else if abs, err := filepath.Abs("."); err == nil {
					opts.ProjectName = filepath.Base(abs)
				}
				opts.IncludeMermaid = !noMermaid
				opts.TopCalled = topCalled
				err = export.Markdown(w, g, opts)
			} else {
				err = export.Write(w, g, fmtName)
			}
			if err != nil {
				closeOut()
				return fmt.Errorf("write %s: %w", fmtName, err)
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: json, dot, mermaid or markdown")
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&project, "project", "", "project name for the markdown title (default current directory)")
	cmd.Flags().BoolVar(&noMermaid, "no-mermaid", false, "omit the Mermaid import diagram")
	cmd.Flags().IntVar(&topCalled, "top", 20, "rows in the most called table (0 = all)")

	return cmd
}
