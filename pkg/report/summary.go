package report

import (
	"sort"
	"strconv"
	"sync"

	"pubtools/pkg/core"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type summaryKey struct {
	stage core.Stage
	class core.ExtensionClass
}

type summaryRow struct {
	files    int
	bytesIn  int64
	bytesOut int64
}

// Summary counts committed transforms per stage and extension class.
type Summary struct {
	mu   sync.Mutex
	rows map[summaryKey]*summaryRow
}

func NewSummary() *Summary {
	return &Summary{rows: make(map[summaryKey]*summaryRow)}
}

func (s *Summary) StageStarted(core.Stage)       {}
func (s *Summary) StageFinished(core.Stage, int) {}

func (s *Summary) FileCommitted(ev core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := summaryKey{ev.Stage, ev.Class}
	row, ok := s.rows[key]
	if !ok {
		row = &summaryRow{}
		s.rows[key] = row
	}
	row.files++
	row.bytesIn += ev.BytesIn
	row.bytesOut += ev.BytesOut
}

// Files returns the number of files committed by stage.
func (s *Summary) Files(stage core.Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, row := range s.rows {
		if key.stage == stage {
			n += row.files
		}
	}
	return n
}

// Table renders the counts, one row per stage and class.
func (s *Summary) Table() string {
	s.mu.Lock()
	keys := make([]summaryKey, 0, len(s.rows))
	for key := range s.rows {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].stage != keys[j].stage {
			return keys[i].stage < keys[j].stage
		}
		return keys[i].class < keys[j].class
	})
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		row := s.rows[key]
		rows = append(rows, []string{
			key.stage.String(), key.class.String(),
			strconv.Itoa(row.files), formatBytes(row.bytesIn), formatBytes(row.bytesOut), ratio(row.bytesIn, row.bytesOut),
		})
	}
	s.mu.Unlock()

	if len(rows) == 0 {
		return "No files transformed.\n"
	}
	return RenderTable(
		[]string{"Stage", "Class", "Files", "In", "Out", "Ratio"},
		rows,
		[]Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight},
	)
}

func ratio(in, out int64) string {
	if in == 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(out)/float64(in)*100, 'f', 1, 64) + "%"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}

// Align selects column alignment for RenderTable.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// RenderTable renders rows under headers in a rounded box.
func RenderTable(headers []string, rows [][]string, aligns []Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render() + "\n"
}
