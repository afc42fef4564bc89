// Package extract turns a rendered tracking-table page into records.
//
// Two strategies implement the same interface: DocumentExtractor parses the
// captured page markup (primary), LiveExtractor walks live DOM elements
// (fallback). WithFallback chains them so one bad page degrades instead of
// killing the run.
package extract

import (
	"context"
	"log/slog"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

// Extractor is the interface both extraction strategies implement.
type Extractor interface {
	// Name returns the strategy identifier (e.g. "document", "live").
	Name() string

	// Extract produces the records visible on the current page.
	Extract(ctx context.Context) ([]models.Record, error)
}

// WithFallback runs the primary extractor and, when it fails, the fallback.
// It returns the records together with the name of the strategy that
// produced them. Only when both strategies fail does it return an error;
// the caller treats that page as contributing zero records.
func WithFallback(ctx context.Context, primary, fallback Extractor) ([]models.Record, string, error) {
	records, err := primary.Extract(ctx)
	if err == nil {
		return records, primary.Name(), nil
	}
	slog.Warn("extraction strategy failed, falling back",
		"strategy", primary.Name(), "fallback", fallback.Name(), "error", err)

	records, fbErr := fallback.Extract(ctx)
	if fbErr != nil {
		return nil, "", models.NewScrapeError(models.ErrCodeExtraction,
			"all extraction strategies failed", fbErr)
	}
	return records, fallback.Name(), nil
}
