package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/go-rod/rod"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

// detailIDPrefix pairs a main row with its detail panel: the panel row's id
// is the main row's id with this prefix.
const detailIDPrefix = "details_"

// Precompiled selectors for the per-page hot path.
var (
	mainRowSel    = cascadia.MustCompile("tr.result")
	detailRowSel  = cascadia.MustCompile("tr[id^='details_']")
	detailCellSel = cascadia.MustCompile("td.details")
	cellSel       = cascadia.MustCompile("td")
	linkSel       = cascadia.MustCompile("a[href]")
	idRowSel      = cascadia.MustCompile("tr[id]")
)

// DocumentExtractor captures the rendered page markup once and parses every
// record out of it. It is the primary extraction strategy: one browser round
// trip per page instead of one per field.
type DocumentExtractor struct {
	page *rod.Page
}

// NewDocumentExtractor creates a DocumentExtractor over the given page.
func NewDocumentExtractor(page *rod.Page) *DocumentExtractor {
	return &DocumentExtractor{page: page}
}

// Name implements Extractor.
func (e *DocumentExtractor) Name() string { return "document" }

// Extract implements Extractor.
func (e *DocumentExtractor) Extract(ctx context.Context) ([]models.Record, error) {
	markup, err := e.page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("extract: capture page markup: %w", err)
	}
	return ParseRecords(markup)
}

// ParseRecords extracts every record from captured page markup.
//
// Detail panels are indexed up front so pairing each main row with its panel
// is a single map lookup. Rows without an id attribute cannot be paired and
// are skipped; rows with fewer than four cells still yield a record with
// empty trailing fields. A malformed row never aborts the page.
func ParseRecords(markup string) ([]models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("extract: parse markup: %w", err)
	}

	panels := make(map[string]*goquery.Selection)
	doc.FindMatcher(detailRowSel).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if key := strings.TrimPrefix(id, detailIDPrefix); key != "" && key != id {
			panels[key] = s
		}
	})

	rows := doc.FindMatcher(mainRowSel)
	if rows.Length() == 0 {
		rows = fallbackRows(doc)
	}

	records := make([]models.Record, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		rowID, ok := row.Attr("id")
		if !ok || rowID == "" {
			slog.Debug("skipping main row without id")
			return
		}
		rec := recordFromRow(rowID, row)
		if panel, ok := panels[rowID]; ok {
			rec.Details, rec.StateStatus = panelSections(panel)
		}
		records = append(records, rec)
	})

	return records, nil
}

// fallbackRows finds data rows on pages where the main-row class is absent:
// any tr with a purely numeric id and at least four cells.
func fallbackRows(doc *goquery.Document) *goquery.Selection {
	return doc.FindMatcher(idRowSel).FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return isDigits(id) && s.FindMatcher(cellSel).Length() >= 4
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// recordFromRow reads the first four cells and the fourth cell's hyperlinks.
func recordFromRow(rowID string, row *goquery.Selection) models.Record {
	rec := models.Record{RowID: rowID, SourceLinks: []string{}}

	cells := row.FindMatcher(cellSel)
	if cells.Length() > 0 {
		rec.Institution = NormalizeSpace(cells.Eq(0).Text())
	}
	if cells.Length() > 1 {
		rec.State = NormalizeSpace(cells.Eq(1).Text())
	}
	if cells.Length() > 2 {
		rec.Impacts = NormalizeSpace(cells.Eq(2).Text())
	}
	if cells.Length() > 3 {
		source := cells.Eq(3)
		rec.Source = NormalizeSpace(source.Text())
		source.FindMatcher(linkSel).Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok && href != "" {
				rec.SourceLinks = append(rec.SourceLinks, href)
			}
		})
	}

	return rec
}

// panelSections splits a detail panel into its details and state-status
// fields. The labeled-markup pass runs first; any field it left empty gets a
// second chance from the line-based scan over the cell's flat text.
func panelSections(panel *goquery.Selection) (details, status string) {
	cell := panel.FindMatcher(detailCellSel).First()
	if cell.Length() == 0 {
		cell = panel.FindMatcher(cellSel).First()
	}
	if len(cell.Nodes) == 0 {
		return "", ""
	}

	node := cell.Nodes[0]
	details, status = splitSections(node)

	if details == "" || status == "" {
		fbDetails, fbStatus := splitSectionsText(textLines(node))
		if details == "" {
			details = fbDetails
		}
		if status == "" {
			status = fbStatus
		}
	}

	return details, status
}
