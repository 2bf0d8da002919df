package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"pubtools/pkg/report"

	"github.com/spf13/cobra"
)

func newHistoryCommand(g *globalFlags) *cobra.Command {
	var (
		dbPath string
		limit  int
		runID  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, or the files one run transformed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := g.load(cmd)
				if err != nil {
					return err
				}
				dbPath = cfg.Run.Report
			}
			if dbPath == "" {
				return errors.New("no report database: pass --report or set run.report")
			}

			store, err := report.Open(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				transforms, err := store.Transforms(cmd.Context(), runID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(transforms))
				for _, t := range transforms {
					rows = append(rows, []string{t.Stage, t.Path, t.Output,
						strconv.FormatInt(t.BytesIn, 10), strconv.FormatInt(t.BytesOut, 10)})
				}
				fmt.Fprint(out, report.RenderTable(
					[]string{"Stage", "Path", "Output", "In", "Out"}, rows,
					[]report.Align{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignRight, report.AlignRight}))
				return nil
			}

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				finished := "-"
				if !r.FinishedAt.IsZero() {
					finished = r.FinishedAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{r.ID, r.Root, r.StartedAt.Local().Format(time.DateTime), finished,
					r.State, strconv.Itoa(r.Files), r.Error})
			}
			fmt.Fprint(out, report.RenderTable(
				[]string{"Run", "Root", "Started", "Finished", "State", "Files", "Error"}, rows,
				[]report.Align{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignRight}))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "report", "", "SQLite database written by run --report")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the transforms of this run")
	return cmd
}
