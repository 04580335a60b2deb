package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn names a column; numeric columns right-align their cells.
type tableColumn struct {
	title   string
	numeric bool
}

func textColumn(title string) tableColumn { return tableColumn{title: title} }
func numColumn(title string) tableColumn  { return tableColumn{title: title, numeric: true} }

// counterTable renders the common two-column label/count layout.
func counterTable(valueTitle string, rows [][]string) string {
	return renderTable([]tableColumn{textColumn("Counter"), numColumn(valueTitle)}, rows)
}

func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, column := range columns {
		header[i] = column.title
		align := text.AlignLeft
		if column.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		tw.AppendRow(cells)
	}

	return tw.Render()
}
