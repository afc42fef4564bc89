package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

// WriteCSV saves records as a flat CSV file: the canonical header, one line
// per record, source links joined with "; ". An empty record set produces a
// header-only file.
func WriteCSV(records []models.Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for i := range records {
		if err := w.Write(flatRow(records[i])); err != nil {
			return fmt.Errorf("export: write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flush csv: %w", err)
	}
	return nil
}
