package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
)

// rowSelector matches the table's main data rows.
const rowSelector = "tr.result"

// expandClickJS runs bound to a row element and tries the interaction
// targets in priority order: a toggle control inside the first cell, the
// first cell, the row itself. Synthetic clicks keep overlays and partial
// occlusion from blocking the expansion. Returns which target fired.
const expandClickJS = `() => {
	const first = this.querySelector('td');
	if (first) {
		const toggle = first.querySelector(
			"button, a, [role='button'], .toggle, .expander, [class*='expand'], span[class*='chevron']"
		);
		if (toggle) { toggle.click(); return 'toggle'; }
		first.click();
		return 'cell';
	}
	this.click();
	return 'row';
}`

// ExpandRows clicks every collapsed main row open so the hidden detail
// panels join the DOM before extraction. It returns how many rows ended up
// open and how many rows the page has. Per-row failures are logged and
// skipped; only context cancellation aborts the pass.
func (s *Session) ExpandRows(ctx context.Context) (int, int, error) {
	p := s.page.Context(ctx)

	rows, err := p.Elements(rowSelector)
	if err != nil {
		return 0, 0, fmt.Errorf("scraper: query rows: %w", err)
	}
	total := len(rows)
	if total == 0 {
		slog.Debug("no rows to expand")
		return 0, 0, nil
	}

	slog.Info("expanding rows", "rows", total)
	expanded := 0
	for i := 0; i < total; i++ {
		if err := s.pacer.RowTick(ctx); err != nil {
			return expanded, total, fmt.Errorf("scraper: run canceled during row expansion: %w", err)
		}

		// Re-query every iteration: expanding mutates the DOM and cached
		// element references go stale.
		rows, err = p.Elements(rowSelector)
		if err != nil || i >= len(rows) {
			slog.Warn("row list changed mid-expansion, stopping early",
				"index", i, "error", err)
			break
		}
		row := rows[i]

		if cls, clsErr := row.Attribute("class"); clsErr == nil && cls != nil && strings.Contains(*cls, "opened") {
			expanded++
			continue
		}

		strategy, rowErr := s.expandRow(ctx, row)
		if rowErr != nil {
			if ctx.Err() != nil {
				return expanded, total, fmt.Errorf("scraper: run canceled during row expansion: %w", rowErr)
			}
			slog.Warn("row expansion failed", "index", i, "error", rowErr)
			continue
		}
		expanded++
		slog.Debug("row expanded", "index", i, "strategy", strategy)
	}

	// Let the last panels finish rendering before extraction reads the DOM.
	if err := s.pacer.SettleRender(ctx); err != nil {
		return expanded, total, err
	}

	slog.Info("row expansion done", "expanded", expanded, "total", total)
	return expanded, total, nil
}

// expandRow scrolls one row into view and fires the click strategy.
func (s *Session) expandRow(ctx context.Context, row *rod.Element) (string, error) {
	if err := row.ScrollIntoView(); err != nil {
		return "", err
	}
	if err := s.pacer.SettleScroll(ctx); err != nil {
		return "", err
	}
	res, err := row.Eval(expandClickJS)
	if err != nil {
		return "", err
	}
	if err := s.pacer.SettleClick(ctx); err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}
