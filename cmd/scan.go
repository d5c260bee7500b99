package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/export"
)

func scanCmd() *cobra.Command {
	var (
		exts      []string
		ignores   []string
		exclude   []string
		format    string
		output    string
		save      bool
		gitignore bool
		noGo      bool
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan source trees and emit the code graph",
		Long: `Scan files and directories, run every extractor over each file and emit
the resulting graph as JSON, Graphviz DOT, Mermaid or Markdown.

Examples:
  codekg scan .                          # JSON graph of the current directory
  codekg scan src --ext py,go -f dot     # only .py and .go files, as DOT
  codekg scan . --exclude 'vendor/**'    # skip paths matching a glob
  codekg scan . --save -o /dev/null      # store the graph for later queries`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			if len(args) > 0 {
				cfg.Paths = args
			}
			flags := cmd.Flags()
			if flags.Changed("ext") {
				cfg.Extensions = exts
			}
			if flags.Changed("ignore") {
				cfg.Ignores = ignores
			}
			if flags.Changed("exclude") {
				cfg.Exclude = append(cfg.Exclude, exclude...)
			}
			if flags.Changed("format") {
				cfg.Format = format
			}
			if flags.Changed("out") {
				cfg.Output = output
			}
			if flags.Changed("gitignore") {
				cfg.RespectGitignore = gitignore
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if noGo {
				cfg.GoExtractor = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmtName, err := export.ParseFormat(cfg.Format)
			if err != nil {
				return err
			}

			g, report, err := runScan(cfg, logger)
			if err != nil {
				return err
			}
			for _, f := range report.Failures {
				logger.Warn("extractor failed", "path", f.Path, "extractor", f.Extractor, "error", f.Err)
			}

			if save {
				db, err := openDB(cfg.DB, true)
				if err != nil {
					return err
				}
				defer db.Close()
				scanID, err := db.SaveGraph(g, cfg.Paths)
				if err != nil {
					return fmt.Errorf("save graph: %w", err)
				}
				logger.Info("graph saved", "db", cfg.DB, "scan", scanID)
			}

			w, closeOut, err := openOutput(cfg.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := export.Write(w, g, fmtName); err != nil {
				closeOut()
				return fmt.Errorf("write %s: %w", fmtName, err)
			}
			return closeOut()
		},
	}

	cmd.Flags().StringSliceVar(&exts, "ext", nil, "only scan files with these extensions (e.g. py,go)")
	cmd.Flags().StringSliceVar(&ignores, "ignore", nil, "directory or file names to skip, replacing the defaults")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns of paths to skip")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, dot, mermaid or markdown")
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&save, "save", false, "store the graph in the database")
	cmd.Flags().BoolVar(&gitignore, "gitignore", false, "skip paths matched by .gitignore files")
	cmd.Flags().BoolVar(&noGo, "no-go", false, "disable the Go extractor")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent file readers")

	return cmd
}
