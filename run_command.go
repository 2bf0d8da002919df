package main

import (
	"fmt"
	"time"

	"pubtools/lib"
	"pubtools/pkg/report"

	"github.com/spf13/cobra"
)

func newRunCommand(g *globalFlags) *cobra.Command {
	var (
		dryRun     bool
		reportPath string
		noLock     bool
		summary    bool
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <root>",
		Short: "Compress then encrypt every asset under root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("report") {
				cfg.Run.Report = reportPath
			}
			if noLock {
				cfg.Run.Lock = false
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			res, err := lib.Process(cmd.Context(), args[0], lib.Options{
				Config:           cfg,
				Logger:           logger.Logger,
				DryRun:           dryRun,
				ProgressInterval: interval,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprint(out, renderPlan(res))
				return nil
			}
			if summary {
				fmt.Fprint(out, res.Summary.Table())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the planned actions without changing any file")
	cmd.Flags().StringVar(&reportPath, "report", "", "Record the run in this SQLite database")
	cmd.Flags().BoolVar(&noLock, "no-lock", false, "Do not take the <root>.lock file")
	cmd.Flags().BoolVar(&summary, "summary", true, "Print a summary table after the run")
	cmd.Flags().DurationVar(&interval, "progress-interval", time.Second, "How often to log progress")

	return cmd
}

func renderPlan(res *lib.Result) string {
	rows := make([][]string, 0, len(res.Plan))
	for _, a := range res.Plan {
		if !a.Compress && !a.Encrypt {
			continue
		}
		rows = append(rows, []string{a.Path, a.Class.String(), yesNo(a.Compress), yesNo(a.Encrypt), a.Output})
	}
	if len(rows) == 0 {
		return fmt.Sprintf("Nothing to do under %s.\n", res.Root)
	}
	return report.RenderTable(
		[]string{"Path", "Class", "Compress", "Encrypt", "Output"},
		rows,
		[]report.Align{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft},
	)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
