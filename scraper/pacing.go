package scraper

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Profile is a set of fixed think-time delays. The run is single-threaded
// and sequential; these delays are the only pacing mechanism.
type Profile struct {
	// ScrollSettle follows each scroll-into-view.
	ScrollSettle time.Duration

	// ClickSettle follows each expansion click.
	ClickSettle time.Duration

	// RowInterval spaces consecutive row expansions.
	RowInterval time.Duration

	// RenderSettle lets detail panels finish rendering after a page's rows
	// are expanded.
	RenderSettle time.Duration

	// PageSettle follows navigation and table waits.
	PageSettle time.Duration

	// NextPageSettle follows a next-page click.
	NextPageSettle time.Duration
}

var (
	// NormalProfile paces like a human skimming the table.
	NormalProfile = Profile{
		ScrollSettle:   400 * time.Millisecond,
		ClickSettle:    time.Second,
		RowInterval:    300 * time.Millisecond,
		RenderSettle:   2 * time.Second,
		PageSettle:     2 * time.Second,
		NextPageSettle: 3 * time.Second,
	}

	// FastProfile roughly halves every delay for quick runs.
	FastProfile = Profile{
		ScrollSettle:   200 * time.Millisecond,
		ClickSettle:    500 * time.Millisecond,
		RowInterval:    100 * time.Millisecond,
		RenderSettle:   500 * time.Millisecond,
		PageSettle:     time.Second,
		NextPageSettle: 1500 * time.Millisecond,
	}
)

// ProfileFor returns the delay profile for the fast toggle.
func ProfileFor(fast bool) Profile {
	if fast {
		return FastProfile
	}
	return NormalProfile
}

// Pacer enforces a profile's delays. Row expansions go through a rate
// limiter; everything else is a context-aware sleep.
type Pacer struct {
	profile Profile
	rows    *rate.Limiter
}

// NewPacer creates a Pacer for the given profile.
func NewPacer(p Profile) *Pacer {
	return &Pacer{
		profile: p,
		rows:    rate.NewLimiter(rate.Every(p.RowInterval), 1),
	}
}

// RowTick blocks until the next row expansion is allowed.
func (p *Pacer) RowTick(ctx context.Context) error {
	return p.rows.Wait(ctx)
}

// SettleScroll waits out the post-scroll delay.
func (p *Pacer) SettleScroll(ctx context.Context) error {
	return p.sleep(ctx, p.profile.ScrollSettle)
}

// SettleClick waits out the post-click delay.
func (p *Pacer) SettleClick(ctx context.Context) error {
	return p.sleep(ctx, p.profile.ClickSettle)
}

// SettleRender waits for detail panels to render.
func (p *Pacer) SettleRender(ctx context.Context) error {
	return p.sleep(ctx, p.profile.RenderSettle)
}

// SettlePage waits out the post-navigation delay.
func (p *Pacer) SettlePage(ctx context.Context) error {
	return p.sleep(ctx, p.profile.PageSettle)
}

// SettleNextPage waits for the next page to start loading after the click.
func (p *Pacer) SettleNextPage(ctx context.Context) error {
	return p.sleep(ctx, p.profile.NextPageSettle)
}

func (p *Pacer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
