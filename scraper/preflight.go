package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/net/html"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/extract"
)

// paywallMarkers are phrases that show up in the visible text of gated
// article pages served to unauthenticated clients.
var paywallMarkers = []string{
	"subscribe to continue",
	"subscribe to read",
	"sign in to continue",
	"log in to continue",
	"subscriber exclusive",
	"create a free account",
}

// Preflight probes the target URL over plain HTTP with a Chrome TLS
// fingerprint (utls) before the browser launches. The probe is advisory:
// it reports what an unauthenticated client sees, and its failures never
// abort the run.
type Preflight struct {
	proxy string
}

// NewPreflight creates a preflight prober. proxy may be empty.
func NewPreflight(proxy string) *Preflight {
	return &Preflight{proxy: proxy}
}

// Check fetches the page without a browser and logs the HTTP status, the
// page title, whether the text looks paywalled, and how many table rows
// are already present in the static HTML.
func (p *Preflight) Check(ctx context.Context, targetURL string) {
	body, status, err := p.fetch(ctx, targetURL)
	if err != nil {
		slog.Warn("preflight fetch failed, continuing to browser", "error", err)
		return
	}

	visible := extractVisibleText(body)
	rows := 0
	if records, parseErr := extract.ParseRecords(string(body)); parseErr == nil {
		rows = len(records)
	}

	slog.Info("preflight probe",
		"status", status,
		"title", extractTitle(body),
		"paywalled", looksPaywalled(visible),
		"staticRows", rows,
	)
	if status >= 400 {
		slog.Warn("preflight got an error status, the browser may still get through",
			"status", status,
		)
	}
}

// fetch retrieves the URL with a Chrome TLS fingerprint. Unlike a normal
// client it treats error statuses as data, not failures: a 403 body is
// exactly what the probe wants to inspect.
func (p *Preflight) fetch(ctx context.Context, targetURL string) ([]byte, int, error) {
	transport := &http.Transport{
		DialTLSContext: dialTLSChrome,
	}
	if p.proxy != "" {
		proxyURL, err := url.Parse(p.proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			slog.Warn("preflight supports only http/https proxies, probing directly",
				"proxy", p.proxy,
			)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("preflight: build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("preflight: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024)) // 10 MB cap
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("preflight: read body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName:         host,
		InsecureSkipVerify: false,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// looksPaywalled reports whether the visible page text carries any of the
// usual subscription-gate phrases.
func looksPaywalled(visibleText string) bool {
	lower := strings.ToLower(visibleText)
	for _, marker := range paywallMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// extractTitle extracts the <title> content from raw HTML bytes.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}

// extractVisibleText extracts the visible text from within <body>, stripping
// all tags and <script>/<style> content. Used for heuristic analysis only.
func extractVisibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
