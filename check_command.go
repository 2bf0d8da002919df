package main

import (
	"fmt"

	"pubtools/lib"
	"pubtools/pkg/report"

	"github.com/spf13/cobra"
)

func newCheckCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the configured tools and key file are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			results := lib.Check(cfg)
			rows := make([][]string, 0, len(results))
			missing := 0
			for _, r := range results {
				status := "ok"
				if !r.OK {
					status = "missing"
					missing++
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprint(cmd.OutOrStdout(), report.RenderTable([]string{"Dependency", "Status", "Detail"}, rows, nil))
			if missing > 0 {
				return fmt.Errorf("%d dependencies unavailable", missing)
			}
			return nil
		},
	}
}
