package models

// Record is one row of the tracking table joined with the contents of its
// expanded detail panel. Field names mirror the export column names.
type Record struct {
	Institution string   `json:"institution"`
	State       string   `json:"state"`
	Impacts     string   `json:"impacts"`
	Source      string   `json:"source"`
	SourceLinks []string `json:"source_links"`
	Details     string   `json:"details"`
	StateStatus string   `json:"state_status"`
	RowID       string   `json:"row_id"`
}

// StopReason records why the pagination loop ended.
type StopReason string

const (
	// StopEndOfData means no next-page affordance was found.
	StopEndOfData StopReason = "end-of-data"

	// StopPageLimit means the configured max page count was reached.
	StopPageLimit StopReason = "page-limit"

	// StopSafetyCeiling means the hard page ceiling tripped.
	StopSafetyCeiling StopReason = "safety-ceiling"

	// StopAborted means the loop ended on an error; whatever was
	// accumulated up to that point is still in the result.
	StopAborted StopReason = "aborted"
)

// ScrapeResult is everything a run accumulated, however it ended.
// Exporters receive it unconditionally, including after mid-run failure.
type ScrapeResult struct {
	Records []Record
	Pages   int
	Stop    StopReason
}
