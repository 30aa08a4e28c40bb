package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableSpec describes one CLI table. Columns listed in numeric are
// right-aligned; headers stay left-aligned.
type tableSpec struct {
	title   string
	headers []string
	numeric []int
}

func (s tableSpec) render(rows [][]string) string {
	if len(s.headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(s.title)
	tw.AppendHeader(toRow(s.headers, len(s.headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(s.headers)))
	}

	configs := make([]table.ColumnConfig, len(s.headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
	}
	for _, col := range s.numeric {
		if col >= 0 && col < len(configs) {
			configs[col].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// toRow pads or truncates cells to width.
func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
