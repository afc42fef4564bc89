package config

import (
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads, so ambient shell state cannot
// leak into the assertions. Setenv also restores the originals afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"STIGMA_HEADLESS", "STIGMA_NO_SANDBOX", "STIGMA_PROXY", "STIGMA_BROWSER_BIN",
		"STIGMA_STEALTH", "STIGMA_USER_AGENT", "STIGMA_BLOCKED_RESOURCES",
		"STIGMA_URL", "STIGMA_WAIT_TIMEOUT", "STIGMA_NAV_TIMEOUT", "STIGMA_MAX_PAGES",
		"STIGMA_SAFETY_CEILING", "STIGMA_EXPAND_ROWS", "STIGMA_FAST", "STIGMA_ITEMS_PER_PAGE",
		"STIGMA_EMAIL", "STIGMA_PASSWORD",
		"STIGMA_OUTPUT_CSV", "STIGMA_OUTPUT_JSON", "STIGMA_OUTPUT_EXCEL",
		"STIGMA_DISPLAY", "STIGMA_DISPLAY_LIMIT",
		"STIGMA_LOG_LEVEL", "STIGMA_LOG_FORMAT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Scrape.URL != DefaultURL {
		t.Errorf("URL = %q, want the tracking-table default", cfg.Scrape.URL)
	}
	if cfg.Scrape.WaitTimeout != 10*time.Second {
		t.Errorf("WaitTimeout = %v, want 10s", cfg.Scrape.WaitTimeout)
	}
	if cfg.Scrape.NavigationTimeout != 30*time.Second {
		t.Errorf("NavigationTimeout = %v, want 30s", cfg.Scrape.NavigationTimeout)
	}
	if cfg.Scrape.MaxPages != 0 {
		t.Errorf("MaxPages = %d, want 0 (unlimited)", cfg.Scrape.MaxPages)
	}
	if cfg.Scrape.SafetyCeiling != 20 {
		t.Errorf("SafetyCeiling = %d, want 20", cfg.Scrape.SafetyCeiling)
	}
	if !cfg.Scrape.ExpandRows {
		t.Error("ExpandRows should default to true")
	}
	if cfg.Scrape.Fast {
		t.Error("Fast should default to false")
	}
	if cfg.Scrape.ItemsPerPage != 25 {
		t.Errorf("ItemsPerPage = %d, want 25", cfg.Scrape.ItemsPerPage)
	}

	if cfg.Browser.Headless {
		t.Error("Headless should default to false (manual login needs a window)")
	}
	if !cfg.Browser.Stealth {
		t.Error("Stealth should default to true")
	}
	if len(cfg.Browser.BlockedResourceTypes) != 0 {
		t.Errorf("BlockedResourceTypes = %v, want none", cfg.Browser.BlockedResourceTypes)
	}

	if cfg.Output.CSVPath != "chronicle_dei_data.csv" {
		t.Errorf("CSVPath = %q", cfg.Output.CSVPath)
	}
	if cfg.Output.JSONPath != "chronicle_dei_data.json" {
		t.Errorf("JSONPath = %q", cfg.Output.JSONPath)
	}
	if cfg.Output.XLSXPath != "chronicle_dei_data.xlsx" {
		t.Errorf("XLSXPath = %q", cfg.Output.XLSXPath)
	}
	if !cfg.Output.Display {
		t.Error("Display should default to true")
	}
	if cfg.Output.DisplayLimit != 50 {
		t.Errorf("DisplayLimit = %d, want 50", cfg.Output.DisplayLimit)
	}

	if cfg.Auth.Email != "" || cfg.Auth.Password != "" {
		t.Error("credentials should default to empty")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STIGMA_HEADLESS", "true")
	t.Setenv("STIGMA_URL", "https://example.com/table")
	t.Setenv("STIGMA_WAIT_TIMEOUT", "3s")
	t.Setenv("STIGMA_MAX_PAGES", "5")
	t.Setenv("STIGMA_EXPAND_ROWS", "false")
	t.Setenv("STIGMA_FAST", "1")
	t.Setenv("STIGMA_BLOCKED_RESOURCES", "image, font ,,media")
	t.Setenv("STIGMA_EMAIL", "reader@example.com")
	t.Setenv("STIGMA_OUTPUT_CSV", "custom.csv")
	t.Setenv("STIGMA_LOG_FORMAT", "json")

	cfg := Load()

	if !cfg.Browser.Headless {
		t.Error("Headless override ignored")
	}
	if cfg.Scrape.URL != "https://example.com/table" {
		t.Errorf("URL = %q", cfg.Scrape.URL)
	}
	if cfg.Scrape.WaitTimeout != 3*time.Second {
		t.Errorf("WaitTimeout = %v, want 3s", cfg.Scrape.WaitTimeout)
	}
	if cfg.Scrape.MaxPages != 5 {
		t.Errorf("MaxPages = %d, want 5", cfg.Scrape.MaxPages)
	}
	if cfg.Scrape.ExpandRows {
		t.Error("ExpandRows override ignored")
	}
	if !cfg.Scrape.Fast {
		t.Error("Fast override ignored")
	}

	want := []string{"image", "font", "media"}
	got := cfg.Browser.BlockedResourceTypes
	if len(got) != len(want) {
		t.Fatalf("BlockedResourceTypes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BlockedResourceTypes[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if cfg.Auth.Email != "reader@example.com" {
		t.Errorf("Email = %q", cfg.Auth.Email)
	}
	if cfg.Output.CSVPath != "custom.csv" {
		t.Errorf("CSVPath = %q", cfg.Output.CSVPath)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Format = %q", cfg.Log.Format)
	}
}

func TestLoad_UnparseableValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("STIGMA_MAX_PAGES", "many")
	t.Setenv("STIGMA_HEADLESS", "yep")
	t.Setenv("STIGMA_WAIT_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Scrape.MaxPages != 0 {
		t.Errorf("MaxPages = %d, want the default after a bad int", cfg.Scrape.MaxPages)
	}
	if cfg.Browser.Headless {
		t.Error("Headless should fall back to false after a bad bool")
	}
	if cfg.Scrape.WaitTimeout != 10*time.Second {
		t.Errorf("WaitTimeout = %v, want the default after a bad duration", cfg.Scrape.WaitTimeout)
	}
}
