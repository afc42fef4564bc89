package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/config"
	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

// tableSelector is the combined candidate list for the results table. The
// site has shipped several markups; any one of these counts as "loaded".
const tableSelector = "table, .table, [data-testid='table'], .data-table, tbody"

// PageSession is what the pagination driver needs from a live session.
// *Session implements it; tests drive the machine with a fake.
type PageSession interface {
	WaitForTable(ctx context.Context) error
	ExpandRows(ctx context.Context) (int, int, error)
	ExtractRecords(ctx context.Context) ([]models.Record, string, error)
	NextPage(ctx context.Context) (bool, error)
}

// pageEstimator is optionally implemented by sessions that can read a total
// result count off the page. Purely informational.
type pageEstimator interface {
	EstimatePages(ctx context.Context) int
}

// Driver runs the per-page loop: wait for the table, expand rows, extract,
// then either advance or stop. It accumulates records across pages and
// always returns them, whatever ended the run.
type Driver struct {
	session PageSession
	cfg     config.ScrapeConfig
}

// NewDriver creates a Driver over the given session.
func NewDriver(session PageSession, cfg config.ScrapeConfig) *Driver {
	return &Driver{session: session, cfg: cfg}
}

// Run executes the pagination loop and returns everything collected. The
// returned result is non-nil even on error, so callers can export partial
// data. The error is non-nil only for a first-page table timeout and for
// context cancellation; every later failure degrades into a stop reason.
func (d *Driver) Run(ctx context.Context) (*models.ScrapeResult, error) {
	result := &models.ScrapeResult{Records: []models.Record{}}

	for page := 1; ; page++ {
		// ── 1. Wait for the table ─────────────────────────────────────
		if err := d.session.WaitForTable(ctx); err != nil {
			if page == 1 {
				result.Stop = models.StopAborted
				return result, models.NewScrapeError(
					models.ErrCodeTableWait,
					"result table never appeared",
					err,
				)
			}
			slog.Warn("table never appeared on a later page, stopping with collected data",
				"page", page, "error", err)
			result.Stop = models.StopAborted
			return result, nil
		}

		// ── 2. Expand detail rows ─────────────────────────────────────
		if d.cfg.ExpandRows {
			expanded, total, err := d.session.ExpandRows(ctx)
			switch {
			case err != nil && ctx.Err() != nil:
				result.Stop = models.StopAborted
				return result, categorizeError(err, "run canceled during row expansion")
			case err != nil:
				slog.Warn("row expansion degraded, extracting anyway",
					"page", page, "error", err)
			default:
				slog.Info("rows expanded", "page", page, "expanded", expanded, "total", total)
			}
		}

		// ── 3. Extract this page ──────────────────────────────────────
		records, strategy, err := d.session.ExtractRecords(ctx)
		if err != nil {
			slog.Warn("extraction failed on this page, continuing",
				"page", page, "error", err)
		} else {
			result.Records = append(result.Records, records...)
			slog.Info("page scraped",
				"page", page,
				"records", len(records),
				"strategy", strategy,
				"totalRecords", len(result.Records),
			)
		}
		result.Pages = page

		if page == 1 {
			if est, ok := d.session.(pageEstimator); ok {
				if n := est.EstimatePages(ctx); n > 0 {
					slog.Info("pagination estimate", "expectedPages", n)
				}
			}
		}

		// ── 4. Limits come before any next-page search ────────────────
		if d.cfg.MaxPages > 0 && page >= d.cfg.MaxPages {
			slog.Info("reached the configured page limit", "pages", page)
			result.Stop = models.StopPageLimit
			return result, nil
		}
		if d.cfg.SafetyCeiling > 0 && page >= d.cfg.SafetyCeiling {
			slog.Warn("reached the safety page ceiling", "pages", page)
			result.Stop = models.StopSafetyCeiling
			return result, nil
		}

		// ── 5. Advance ────────────────────────────────────────────────
		moved, err := d.session.NextPage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				result.Stop = models.StopAborted
				return result, categorizeError(err, "run canceled while paginating")
			}
			slog.Warn("next-page advance failed, treating as end of data",
				"page", page, "error", err)
			result.Stop = models.StopEndOfData
			return result, nil
		}
		if !moved {
			slog.Info("no next-page affordance, end of data", "pages", page)
			result.Stop = models.StopEndOfData
			return result, nil
		}
	}
}

// WaitForTable blocks until the results table is in the DOM or the
// configured wait timeout elapses, then lets the page settle.
func (s *Session) WaitForTable(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.WaitTimeout)
	defer cancel()

	p := s.page.Context(waitCtx)
	if _, err := p.Element(tableSelector); err != nil {
		return fmt.Errorf("scraper: table wait: %w", err)
	}
	return s.pacer.SettlePage(ctx)
}

// nextPageJS finds a next-page affordance in priority order (accessible
// label, visible text, class/data attributes), clicks the first usable one,
// and returns which tier matched. Empty string means none found. Finding
// and clicking in one eval avoids a stale handle between the two steps.
const nextPageJS = `() => {
	const visible = (el) => {
		if (!el || el.disabled) return false;
		if (el.getAttribute('aria-disabled') === 'true') return false;
		if (el.classList.contains('disabled')) return false;
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 || rect.height === 0) return false;
		const style = window.getComputedStyle(el);
		return style.visibility !== 'hidden' && style.display !== 'none';
	};

	const labels = ['next', 'Next', 'next page', 'Go to next page'];
	for (const label of labels) {
		const sel = 'button[aria-label="' + label + '"], a[aria-label="' + label + '"]';
		for (const el of document.querySelectorAll(sel)) {
			if (visible(el)) { el.click(); return 'aria-label'; }
		}
	}

	const texts = ['Next', 'Next page', '»', '›'];
	for (const el of document.querySelectorAll('a, button')) {
		if (!visible(el)) continue;
		const text = (el.textContent || '').trim();
		if (texts.some(t => text.includes(t))) { el.click(); return 'text'; }
	}

	const classSelectors = [
		'.pagination-next', '.next-page', "[class*='next']",
		'button.next', 'a.next', "[data-page='next']", "[data-action='next']"
	];
	for (const sel of classSelectors) {
		for (const el of document.querySelectorAll(sel)) {
			if (visible(el)) { el.click(); return 'class'; }
		}
	}

	return '';
}`

// NextPage scrolls to the bottom and tries to advance to the next page.
// It reports whether a next-page control was found and clicked.
func (s *Session) NextPage(ctx context.Context) (bool, error) {
	p := s.page.Context(ctx)

	// The pagination controls sit under the table; bring them into view
	// so lazy-rendered footers mount before the search.
	if _, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err == nil {
		if err := s.pacer.SettleScroll(ctx); err != nil {
			return false, err
		}
	}

	res, err := p.Eval(nextPageJS)
	if err != nil {
		return false, fmt.Errorf("scraper: next-page search: %w", err)
	}
	strategy := res.Value.Str()
	if strategy == "" {
		return false, nil
	}
	slog.Debug("next page clicked", "strategy", strategy)

	if err := s.pacer.SettleNextPage(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// paginationInfoSelectors are places the site prints "Showing 1-25 of N".
var paginationInfoSelectors = []string{
	".pagination-info",
	".results-info",
	"[class*='results']",
	"[class*='pagination']",
}

var pageCountRe = regexp.MustCompile(`of\s+([\d,]+)`)

// EstimatePages reads the total result count off the page, if it is
// printed anywhere, and converts it to a page count. Returns 0 when no
// estimate is available. Informational only.
func (s *Session) EstimatePages(ctx context.Context) int {
	p := s.page.Context(ctx)
	for _, sel := range paginationInfoSelectors {
		has, el, err := p.Has(sel)
		if err != nil || !has {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		m := pageCountRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		total, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil || total <= 0 {
			continue
		}
		per := s.cfg.ItemsPerPage
		if per <= 0 {
			per = 25
		}
		return (total + per - 1) / per
	}
	return 0
}
