package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/tealeg/xlsx/v2"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

const sheetName = "DEI Data"

// maxColWidth caps spreadsheet column widths so a long details paragraph
// does not stretch its column across the whole screen.
const maxColWidth = 50

// WriteXLSX saves records as a single-sheet workbook: header row, one row per
// record, columns in spreadsheet order and sized to their content. An empty
// record set produces a valid workbook with only the header.
func WriteXLSX(records []models.Record, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("export: add sheet: %w", err)
	}

	widths := make([]int, len(xlsxColumns))
	header := sheet.AddRow()
	for i, name := range xlsxColumns {
		header.AddCell().SetString(name)
		widths[i] = utf8.RuneCountInString(name)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		for i, value := range xlsxRow(rec) {
			row.AddCell().SetString(value)
			if n := utf8.RuneCountInString(value); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i, w := range widths {
		width := w + 2
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := sheet.SetColWidth(i, i, float64(width)); err != nil {
			return fmt.Errorf("export: size column %d: %w", i, err)
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("export: save xlsx: %w", err)
	}
	return nil
}
