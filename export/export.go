// Package export serializes a run's accumulated records. Every writer
// accepts an empty record set and still produces a valid artifact, because
// partial and even zero-row runs are saved unconditionally.
package export

import (
	"strings"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

// linkSeparator joins source links in the flat formats.
const linkSeparator = "; "

// columns is the canonical field order: the CSV header and the JSON keys.
var columns = []string{
	"institution",
	"state",
	"impacts",
	"source",
	"source_links",
	"details",
	"state_status",
	"row_id",
}

// xlsxColumns reorders the fields for spreadsheet readability: the prose
// fields sit next to the row fields, links and ids go last.
var xlsxColumns = []string{
	"institution",
	"state",
	"impacts",
	"source",
	"details",
	"state_status",
	"source_links",
	"row_id",
}

// flatRow renders one record in canonical column order, links joined.
func flatRow(rec models.Record) []string {
	return []string{
		rec.Institution,
		rec.State,
		rec.Impacts,
		rec.Source,
		strings.Join(rec.SourceLinks, linkSeparator),
		rec.Details,
		rec.StateStatus,
		rec.RowID,
	}
}

// xlsxRow renders one record in spreadsheet column order.
func xlsxRow(rec models.Record) []string {
	return []string{
		rec.Institution,
		rec.State,
		rec.Impacts,
		rec.Source,
		rec.Details,
		rec.StateStatus,
		strings.Join(rec.SourceLinks, linkSeparator),
		rec.RowID,
	}
}
