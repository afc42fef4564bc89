package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

// LiveExtractor reads records straight off the live DOM, one cell-text read
// per field. Slower than the document strategy but immune to markup parsing
// failures, so it runs as the fallback.
type LiveExtractor struct {
	page *rod.Page
}

// NewLiveExtractor creates a LiveExtractor over the given page.
func NewLiveExtractor(page *rod.Page) *LiveExtractor {
	return &LiveExtractor{page: page}
}

// Name implements Extractor.
func (e *LiveExtractor) Name() string { return "live" }

// Extract implements Extractor.
func (e *LiveExtractor) Extract(ctx context.Context) ([]models.Record, error) {
	p := e.page.Context(ctx)

	rows, err := p.Elements("tr.result")
	if err != nil {
		return nil, fmt.Errorf("extract: query main rows: %w", err)
	}

	records := make([]models.Record, 0, len(rows))
	for i, row := range rows {
		rec, ok := e.recordFromElement(p, row)
		if !ok {
			slog.Debug("live extract: skipping row", "index", i)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// recordFromElement reads one main row and its detail panel. Rows without an
// id cannot be paired with a panel and are skipped.
func (e *LiveExtractor) recordFromElement(p *rod.Page, row *rod.Element) (models.Record, bool) {
	idAttr, err := row.Attribute("id")
	if err != nil || idAttr == nil || *idAttr == "" {
		return models.Record{}, false
	}
	rec := models.Record{RowID: *idAttr, SourceLinks: []string{}}

	cells, err := row.Elements("td")
	if err != nil {
		return rec, true
	}

	cellText := func(i int) string {
		if i >= len(cells) {
			return ""
		}
		text, terr := cells[i].Text()
		if terr != nil {
			return ""
		}
		return NormalizeSpace(text)
	}

	rec.Institution = cellText(0)
	rec.State = cellText(1)
	rec.Impacts = cellText(2)
	rec.Source = cellText(3)

	if len(cells) > 3 {
		if anchors, aerr := cells[3].Elements("a"); aerr == nil {
			for _, a := range anchors {
				if href, herr := a.Attribute("href"); herr == nil && href != nil && *href != "" {
					rec.SourceLinks = append(rec.SourceLinks, *href)
				}
			}
		}
	}

	rec.Details, rec.StateStatus = e.panelSections(p, rec.RowID)

	return rec, true
}

// panelSections reads the paired detail panel's text, preferring the details
// cell over the whole panel row. A missing panel leaves both fields empty.
func (e *LiveExtractor) panelSections(p *rod.Page, rowID string) (string, string) {
	panelID := "#" + detailIDPrefix + rowID

	if ok, cell, err := p.Has(panelID + " td.details"); err == nil && ok {
		if text, terr := cell.Text(); terr == nil {
			return splitSectionsText(text)
		}
	}
	if ok, panel, err := p.Has(panelID); err == nil && ok {
		if text, terr := panel.Text(); terr == nil {
			return splitSectionsText(text)
		}
	}

	return "", ""
}
