package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

// WriteJSON saves records as a pretty-printed JSON array of objects with
// snake_case keys. Source links stay a native string array. An empty record
// set encodes as [], never null, and nil link slices are normalized so no
// record serializes its links as null either.
func WriteJSON(records []models.Record, path string) error {
	out := make([]models.Record, len(records))
	copy(out, records)
	for i := range out {
		if out[i].SourceLinks == nil {
			out[i].SourceLinks = []string{}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create json file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	// Links carry & and = characters; keep them readable.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}
