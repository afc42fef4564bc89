package scraper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
)

// Candidate selectors for the login flow. The site ships no stable ids, so
// each step tries a list and the first hit wins.
var (
	signInSelectors = []string{
		"a[href*='signin']",
		"a[href*='login']",
		"button[data-action='signin']",
		".sign-in",
		"#sign-in",
		"[data-testid='sign-in']",
	}

	emailSelectors = []string{
		"input[type='email']",
		"input[name='email']",
		"input[id*='email']",
		"input[name='username']",
	}

	passwordSelectors = []string{
		"input[type='password']",
		"input[name='password']",
	}

	submitSelectors = []string{
		"button[type='submit']",
		"input[type='submit']",
		"button[data-action='submit']",
		".submit-button",
	}
)

// signInTextPattern matches sign-in affordances by their visible text when
// none of the CSS candidates hit.
const signInTextPattern = "/sign in|log in/i"

// submitTextPattern matches submit buttons by visible text.
const submitTextPattern = "/sign in|log in|continue|submit/i"

const loginPollInterval = 200 * time.Millisecond

// Login scripts the subscription sign-in flow. It returns whether the page
// looks authenticated afterwards. A selector that never shows up is a
// degraded-mode outcome (false, nil), logged at warn: the run continues
// unauthenticated and scrapes whatever is visible. Only transport-level
// failures (context cancellation) return an error.
func (s *Session) Login(ctx context.Context, email, password string) (bool, error) {
	p := s.page.Context(ctx)

	// ── 1. Skip if already authenticated ──────────────────────────────
	if verifyLogin(p) {
		slog.Info("already signed in, skipping login flow")
		return true, nil
	}

	// ── 2. Find and click the sign-in affordance ──────────────────────
	signIn, found := findFirst(p, signInSelectors)
	if !found {
		if has, el, _ := p.HasR("a, button, [role='button']", signInTextPattern); has {
			signIn, found = el, true
		}
	}
	if !found {
		slog.Warn("no sign-in affordance found, continuing unauthenticated")
		return false, nil
	}
	if err := clickJS(signIn); err != nil {
		slog.Warn("sign-in click failed, continuing unauthenticated", "error", err)
		return false, nil
	}
	if err := s.pacer.SettleClick(ctx); err != nil {
		return false, err
	}

	// ── 3. Fill the email field ───────────────────────────────────────
	emailField, found, err := waitFirst(ctx, p, emailSelectors, s.cfg.WaitTimeout)
	if err != nil {
		return false, err
	}
	if !found {
		slog.Warn("email field never appeared, continuing unauthenticated")
		return false, nil
	}
	if err := fillField(emailField, email); err != nil {
		slog.Warn("email fill failed, continuing unauthenticated", "error", err)
		return false, nil
	}

	// ── 4. Advance to the password step when it is a separate screen ──
	if has, _, _ := p.Has(passwordSelectors[0]); !has {
		if submit, ok := findSubmit(p); ok {
			if err := clickJS(submit); err == nil {
				if err := s.pacer.SettleClick(ctx); err != nil {
					return false, err
				}
			}
		}
	}

	// ── 5. Fill the password field ────────────────────────────────────
	passwordField, found, err := waitFirst(ctx, p, passwordSelectors, s.cfg.WaitTimeout)
	if err != nil {
		return false, err
	}
	if !found {
		slog.Warn("password field never appeared, continuing unauthenticated")
		return false, nil
	}
	if err := fillField(passwordField, password); err != nil {
		slog.Warn("password fill failed, continuing unauthenticated", "error", err)
		return false, nil
	}

	// ── 6. Submit ─────────────────────────────────────────────────────
	submit, ok := findSubmit(p)
	if !ok {
		slog.Warn("no submit button found, continuing unauthenticated")
		return false, nil
	}
	if err := clickJS(submit); err != nil {
		slog.Warn("submit click failed, continuing unauthenticated", "error", err)
		return false, nil
	}
	if err := s.pacer.SettlePage(ctx); err != nil {
		return false, err
	}

	// ── 7. Verify ─────────────────────────────────────────────────────
	if verifyLogin(p) {
		slog.Info("login verified")
		return true, nil
	}
	slog.Warn("login could not be verified, continuing unauthenticated")
	return false, nil
}

// AwaitManualLogin pauses the run so a human can sign in through the visible
// browser window. It blocks indefinitely until a newline arrives on in;
// this is the one unbounded wait in the system.
func (s *Session) AwaitManualLogin(in io.Reader, out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "No credentials supplied. Sign in manually in the browser window,")
	fmt.Fprintln(out, "then press Enter here to continue scraping.")
	_, _ = bufio.NewReader(in).ReadString('\n')
	slog.Info("manual login acknowledged, resuming")
}

// findFirst returns the first element matching any of the candidate
// selectors. It never waits.
func findFirst(p *rod.Page, selectors []string) (*rod.Element, bool) {
	for _, sel := range selectors {
		if has, el, _ := p.Has(sel); has {
			return el, true
		}
	}
	return nil, false
}

// findSubmit locates a submit control by CSS candidates, then by text.
func findSubmit(p *rod.Page) (*rod.Element, bool) {
	if el, ok := findFirst(p, submitSelectors); ok {
		return el, true
	}
	if has, el, _ := p.HasR("button, [role='button']", submitTextPattern); has {
		return el, true
	}
	return nil, false
}

// waitFirst polls the candidate selectors until one matches or the timeout
// elapses. The context aborts the wait early.
func waitFirst(ctx context.Context, p *rod.Page, selectors []string, timeout time.Duration) (*rod.Element, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if el, ok := findFirst(p, selectors); ok {
			return el, true, nil
		}
		if time.Now().After(deadline) {
			return nil, false, nil
		}
		select {
		case <-time.After(loginPollInterval):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// clickJS clicks an element with a synthetic in-page click, which works even
// when an overlay covers the element or it sits outside the viewport.
func clickJS(el *rod.Element) error {
	_, err := el.Eval(`() => this.click()`)
	return err
}

// fillField replaces an input's current content with text.
func fillField(el *rod.Element, text string) error {
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

// verifyLogin reports whether the page looks authenticated: the result table
// is present, or no sign-in affordance is visible anymore.
func verifyLogin(p *rod.Page) bool {
	if has, _, _ := p.Has("tr.result"); has {
		return true
	}
	for _, sel := range signInSelectors {
		if has, el, _ := p.Has(sel); has {
			if visible, err := el.Visible(); err == nil && visible {
				return false
			}
		}
	}
	if has, el, _ := p.HasR("a, button, [role='button']", signInTextPattern); has {
		if visible, err := el.Visible(); err == nil && visible {
			return false
		}
	}
	return true
}
