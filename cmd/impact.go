package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/internal/impact"
)

func impactCmd() *cobra.Command {
	var (
		upDepth   int
		downDepth int
		changed   bool
		gitBase   string
		remote    bool
		repoDir   string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "impact [name-or-id]",
		Short: "Analyze what a change to a symbol affects",
		Long: `Report the direct and indirect callers and callees of a symbol, with a risk
grade based on how many callers it reaches.

Risk levels:
  - critical: direct callers >= 50 or total callers >= 200
  - high:     direct callers >= 20 or total callers >= 100
  - medium:   direct callers >= 5 or total callers >= 30
  - low:      otherwise

With --changed, every function, method and class declared in the files git
reports as changed is analyzed instead.

Examples:
  codekg impact load_config
  codekg impact symbol:app.py:main --up 0 --down 2
  codekg impact --changed --base HEAD~1
  codekg impact --changed --remote`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if changed == (len(args) == 1) {
				return fmt.Errorf("give either a symbol or --changed")
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg.DB, false)
			if err != nil {
				return err
			}
			defer db.Close()

			a := impact.NewAnalyzer(db)
			out := cmd.OutOrStdout()

			if !changed {
				target, err := a.Resolve(args[0])
				if err != nil {
					return err
				}
				report, err := a.Analyze(target.ID, upDepth, downDepth)
				if err != nil {
					return err
				}
				if asJSON {
					return outputJSON(out, report)
				}
				fmt.Fprint(out, report.FormatMarkdown())
				return nil
			}

			if remote {
				branch, err := impact.RemoteTrackingBranch(repoDir)
				if err != nil {
					logger.Warn("falling back to HEAD", "error", err)
				} else {
					gitBase = branch
				}
			}
			files, err := impact.ChangedFiles(repoDir, gitBase)
			if err != nil {
				return err
			}
			logger.Info("changed files", "count", len(files), "base", gitBase)

			reports, err := a.ForFiles(files, upDepth)
			if err != nil {
				return err
			}
			if asJSON {
				return outputJSON(out, reports)
			}
			if len(reports) == 0 {
				fmt.Fprintln(out, "No stored symbols are declared in the changed files")
				return nil
			}
			for _, r := range reports {
				risk := r.Risk()
				fmt.Fprintf(out, "%s %-8s %s  callers: %d direct, %d indirect\n",
					impact.RiskIcon(risk), risk, r.Target.ID, len(r.DirectCallers), len(r.IndirectCallers))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&upDepth, "up", 0, "caller levels to follow (0 = unlimited)")
	cmd.Flags().IntVar(&downDepth, "down", 1, "callee levels to follow (0 = unlimited)")
	cmd.Flags().BoolVar(&changed, "changed", false, "analyze symbols in files changed according to git")
	cmd.Flags().StringVar(&gitBase, "base", "", "git revision to diff against (default HEAD)")
	cmd.Flags().BoolVar(&remote, "remote", false, "diff against the remote tracking branch")
	cmd.Flags().StringVar(&repoDir, "repo", ".", "git repository directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}
