package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/scanner"
	"github.com/zheng/codekg/internal/watcher"
)

func watchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Rescan and store the graph whenever files change",
		Long: `Scan once, then watch the paths and rescan after every burst of changes.
Each rescan replaces the stored graph, so the query commands and the MCP
server always see the current tree.

Examples:
  codekg watch .                    # watch the current directory
  codekg watch src --debounce 1s    # wait one quiet second before rescanning`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Paths = args
			}
			if cmd.Flags().Changed("debounce") {
				cfg.Watch.Debounce = debounce
			}

			db, err := openDB(cfg.DB, true)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			_, g, err := scanAndSave(cfg, logger, db)
			if err != nil {
				return fmt.Errorf("initial scan: %w", err)
			}
			fmt.Fprintf(out, "Initial scan: %d nodes, %d edges\n", g.NodeCount(), g.EdgeCount())

			// the filter uses the same inclusion rules as the scan itself
			sc, err := scanner.New(cfg.ScannerOptions(logger)...)
			if err != nil {
				return err
			}
			ignored := cfg.Ignores
			if len(ignored) == 0 {
				ignored = scanner.DefaultIgnores
			}

			w, err := watcher.New(cfg.Paths,
				func() (watcher.Result, error) {
					_, g, err := scanAndSave(cfg, logger, db)
					if err != nil {
						return watcher.Result{}, err
					}
					return watcher.Result{Nodes: g.NodeCount(), Edges: g.EdgeCount()}, nil
				},
				watcher.WithDebounceDelay(cfg.Watch.Debounce),
				watcher.WithFilter(sc.ShouldIncludeFile),
				watcher.WithSkipDir(func(name string) bool {
					return strings.HasPrefix(name, ".") || slices.Contains(ignored, name)
				}),
				watcher.WithLogger(logger),
				watcher.WithOnAnalysisStart(func(changed []string) {
					fmt.Fprintf(out, "[%s] %d changed, rescanning...\n", time.Now().Format("15:04:05"), len(changed))
				}),
				watcher.WithOnAnalysisDone(func(r watcher.Result, d time.Duration) {
					fmt.Fprintf(out, "[%s] %d nodes, %d edges (%v)\n",
						time.Now().Format("15:04:05"), r.Nodes, r.Edges, d.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%s] error: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}

			w.Start()
			defer w.Stop()

			fmt.Fprintf(out, "Watching %s (debounce %v), press Ctrl+C to stop\n", strings.Join(cfg.Paths, ", "), cfg.Watch.Debounce)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			fmt.Fprintln(out, "Stopping")
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before a rescan")
	return cmd
}
