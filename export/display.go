package export

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

// displayWidths caps each terminal column so one long field cannot wrap the
// whole table off screen. Order matches the displayed columns.
var displayWidths = [5]int{40, 10, 30, 30, 50}

// RenderTable prints up to maxRows records as a terminal table: the five
// reading columns, truncated to their width caps, with a trailer noting how
// many rows were held back and the total count. maxRows <= 0 shows all rows.
func RenderTable(w io.Writer, records []models.Record, maxRows int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records to display.")
		return
	}

	shown := records
	if maxRows > 0 && len(records) > maxRows {
		shown = records[:maxRows]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Institution", "State", "Impacts", "Source", "Details"})
	for _, rec := range shown {
		t.AppendRow(table.Row{
			truncate(rec.Institution, displayWidths[0]),
			truncate(rec.State, displayWidths[1]),
			truncate(rec.Impacts, displayWidths[2]),
			truncate(rec.Source, displayWidths[3]),
			truncate(rec.Details, displayWidths[4]),
		})
	}
	t.Render()

	if len(records) > len(shown) {
		fmt.Fprintf(w, "... and %d more rows (showing first %d)\n", len(records)-len(shown), len(shown))
	}
	fmt.Fprintf(w, "Total records: %d\n", len(records))
}

// truncate cuts s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
