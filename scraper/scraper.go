// Package scraper drives the browser session: login, row expansion, and the
// pagination loop that feeds the extractors.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/config"
	"github.com/ch4nbin/stigma-dei-policy-pipeline/extract"
	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Session owns one browser and one page for the whole run. The run is
// sequential, so nothing here is guarded for concurrent use.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	router   *rod.HijackRouter
	cfg      config.ScrapeConfig
	pacer    *Pacer
}

// NewSession launches the browser, opens the single page the run will use,
// and applies the stealth, user-agent, and header overrides. Overrides must
// land before the first navigation to take effect.
func NewSession(browserCfg config.BrowserConfig, scrapeCfg config.ScrapeConfig) (*Session, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}

	// ── Automation-masking flags ────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), "1920,1080")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", browserCfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to open page",
			err,
		)
	}

	if browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	ua := browserCfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	if uaErr := (proto.NetworkSetUserAgentOverride{UserAgent: ua}).Call(page); uaErr != nil {
		slog.Warn("user agent override failed", "error", uaErr)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": "en-US,en;q=0.9"}),
	}.Call(page)

	router := setupHijack(page, browserCfg.BlockedResourceTypes)

	return &Session{
		browser:  browser,
		launcher: l,
		page:     page,
		router:   router,
		cfg:      scrapeCfg,
		pacer:    NewPacer(ProfileFor(scrapeCfg.Fast)),
	}, nil
}

// Navigate opens the target URL and lets the DOM settle. Non-convergence of
// the DOM is expected on pages that poll; it is logged and not an error.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	slog.Info("navigating", "url", url)
	p := s.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	return s.pacer.SettlePage(ctx)
}

// Page exposes the session's page to the extractors.
func (s *Session) Page() *rod.Page {
	return s.page
}

// ExtractRecords runs the extraction strategies against the current page.
func (s *Session) ExtractRecords(ctx context.Context) ([]models.Record, string, error) {
	return extract.WithFallback(ctx,
		extract.NewDocumentExtractor(s.page),
		extract.NewLiveExtractor(s.page),
	)
}

// Close releases the page, the browser, and the launcher's temp dir. It is
// safe to call however far startup got, and it always runs to the end.
func (s *Session) Close() {
	if s.router != nil {
		_ = s.router.Stop()
	}
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	slog.Info("browser session closed")
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so the CLI can
// map them to exit behavior.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "run canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
