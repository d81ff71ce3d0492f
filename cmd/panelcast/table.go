package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type column struct {
	title string
	right bool
}

func left(title string) column  { return column{title: title} }
func right(title string) column { return column{title: title, right: true} }

// chapterColumns is shared by the run summary and history show.
var chapterColumns = []column{
	left("Chapter"), left("Status"), right("Pages"), right("Silent"),
	right("Repaired"), right("Duration"), right("Elapsed"),
}

// renderTable draws rows under columns. A non-empty footer is rendered as a
// totals row; short rows and footers are padded with blanks.
func renderTable(columns []column, rows [][]string, footer ...string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	configs := make([]table.ColumnConfig, len(columns))
	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft, AlignFooter: align}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		tw.AppendRow(padRow(row, len(columns)))
	}
	if len(footer) > 0 {
		tw.AppendFooter(padRow(footer, len(columns)))
	}
	return tw.Render() + "\n"
}

func padRow(cells []string, width int) table.Row {
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
