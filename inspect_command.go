package main

import (
	"fmt"
	"os"
	"strconv"

	"pubtools/pkg/codec"
	"pubtools/pkg/core"
	"pubtools/pkg/report"

	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Show the container header of framed assets and verify their payload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			var failed int
			for _, path := range args {
				row, err := inspectFile(path)
				if err != nil {
					failed++
				}
				rows = append(rows, row)
			}
			fmt.Fprint(cmd.OutOrStdout(), report.RenderTable(
				[]string{"File", "Original", "Payload", "Format", "Status"},
				rows,
				[]report.Align{report.AlignLeft, report.AlignRight, report.AlignRight, report.AlignLeft, report.AlignLeft},
			))
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed inspection", failed, len(args))
			}
			return nil
		},
	}
}

func inspectFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return []string{path, "-", "-", "-", err.Error()}, err
	}
	defer f.Close()

	fr, err := codec.InspectFrame(f)
	format := "opaque"
	if fr.LZ4 {
		format = "lz4"
	}
	row := []string{path, "-", "-", format, "ok"}
	if fr.Header.Magic == core.FrameMagic {
		row[1] = strconv.FormatUint(uint64(fr.Header.OriginalLen), 10)
		row[2] = strconv.FormatInt(fr.CompressedSize, 10)
	}
	if err != nil {
		row[4] = err.Error()
		return row, err
	}
	return row, nil
}
