package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLooksPaywalled(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"subscribe phrase", "Please Subscribe to Continue reading this article.", true},
		{"sign-in phrase uppercase", "SIGN IN TO CONTINUE", true},
		{"subscriber exclusive", "This story is a subscriber exclusive.", true},
		{"plain article text", "Tracking DEI legislation across 30 states.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksPaywalled(tt.text); got != tt.want {
				t.Errorf("looksPaywalled(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	page := []byte(`<html><head><title> Tracking DEI | The Chronicle </title></head><body></body></html>`)
	if got := extractTitle(page); got != "Tracking DEI | The Chronicle" {
		t.Errorf("extractTitle = %q", got)
	}
	if got := extractTitle([]byte(`<html><body>no title here</body></html>`)); got != "" {
		t.Errorf("extractTitle without a title tag = %q, want empty", got)
	}
}

func TestExtractVisibleText(t *testing.T) {
	page := []byte(`<html><head><title>HeadOnly</title><style>.row{color:red}</style></head>` +
		`<body><p>Hello</p><script>var secret = 1;</script><div>visible world</div>` +
		`<noscript>enable JS</noscript></body></html>`)

	got := extractVisibleText(page)
	for _, want := range []string{"Hello", "visible world"} {
		if !strings.Contains(got, want) {
			t.Errorf("visible text %q is missing %q", got, want)
		}
	}
	for _, banned := range []string{"secret", "color:red", "HeadOnly", "enable JS"} {
		if strings.Contains(got, banned) {
			t.Errorf("visible text %q leaked %q", got, banned)
		}
	}
}

func TestPreflightFetch_ErrorStatusIsData(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<html><head><title>Gated</title></head><body>Subscribe to continue</body></html>`))
	}))
	defer srv.Close()

	body, status, err := NewPreflight("").fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v (an error status must not fail the probe)", err)
	}
	if status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
	if !strings.Contains(string(body), "Subscribe to continue") {
		t.Errorf("body = %q, want the gated page content", body)
	}
	if gotUA != defaultUserAgent {
		t.Errorf("User-Agent = %q, want the browser default", gotUA)
	}
}

func TestPreflightFetch_BadURL(t *testing.T) {
	if _, _, err := NewPreflight("").fetch(context.Background(), "://nope"); err == nil {
		t.Error("expected an error for an unparsable URL")
	}
}
