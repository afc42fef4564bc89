package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultURL is the tracking-table page this tool was built for.
const DefaultURL = "https://www.chronicle.com/article/tracking-higher-eds-dismantling-of-dei"

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig
	Scrape  ScrapeConfig
	Auth    AuthConfig
	Output  OutputConfig
	Log     LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless. Manual login
	// needs a visible window, so the default is headed.
	Headless bool // default: false

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Proxy is an optional proxy URL for the browser and the preflight probe.
	Proxy string

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth toggles stealth JS injection on new documents.
	Stealth bool // default: true

	// UserAgent overrides the browser user agent.
	UserAgent string

	// BlockedResourceTypes lists resource types to abort during the crawl.
	// Stylesheet is never honored here: visibility checks depend on layout.
	// default: none (disabled)
	BlockedResourceTypes []string
}

// ScrapeConfig controls scraping behavior.
type ScrapeConfig struct {
	// URL is the tracking-table page to scrape.
	URL string

	// WaitTimeout bounds each wait for the table to appear.
	WaitTimeout time.Duration // default: 10s

	// NavigationTimeout bounds page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// MaxPages stops after this many pages; 0 means unlimited.
	MaxPages int // default: 0

	// SafetyCeiling is the hard page ceiling that stops the loop even
	// when MaxPages is unlimited and a next affordance keeps appearing.
	SafetyCeiling int // default: 20

	// ExpandRows toggles the row-expansion phase.
	ExpandRows bool // default: true

	// Fast selects the short delay profile.
	Fast bool // default: false

	// ItemsPerPage is used only to estimate the page count from
	// pagination text; never load-bearing.
	ItemsPerPage int // default: 25
}

// AuthConfig carries login credentials. When either field is empty the run
// pauses for a manual login instead of scripting one.
type AuthConfig struct {
	Email    string
	Password string
}

// OutputConfig controls where results land.
type OutputConfig struct {
	CSVPath  string // default: chronicle_dei_data.csv
	JSONPath string // default: chronicle_dei_data.json
	XLSXPath string // default: chronicle_dei_data.xlsx

	// Display toggles the terminal table after the run.
	Display bool // default: true

	// DisplayLimit caps how many rows the terminal table shows.
	DisplayLimit int // default: 50
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
// CLI flags override individual fields after load.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:             envBoolOr("STIGMA_HEADLESS", false),
			NoSandbox:            envBoolOr("STIGMA_NO_SANDBOX", false),
			Proxy:                os.Getenv("STIGMA_PROXY"),
			BrowserBin:           os.Getenv("STIGMA_BROWSER_BIN"),
			Stealth:              envBoolOr("STIGMA_STEALTH", true),
			UserAgent:            envOr("STIGMA_USER_AGENT", ""),
			BlockedResourceTypes: envSliceOr("STIGMA_BLOCKED_RESOURCES", nil),
		},
		Scrape: ScrapeConfig{
			URL:               envOr("STIGMA_URL", DefaultURL),
			WaitTimeout:       envDurationOr("STIGMA_WAIT_TIMEOUT", 10*time.Second),
			NavigationTimeout: envDurationOr("STIGMA_NAV_TIMEOUT", 30*time.Second),
			MaxPages:          envIntOr("STIGMA_MAX_PAGES", 0),
			SafetyCeiling:     envIntOr("STIGMA_SAFETY_CEILING", 20),
			ExpandRows:        envBoolOr("STIGMA_EXPAND_ROWS", true),
			Fast:              envBoolOr("STIGMA_FAST", false),
			ItemsPerPage:      envIntOr("STIGMA_ITEMS_PER_PAGE", 25),
		},
		Auth: AuthConfig{
			Email:    os.Getenv("STIGMA_EMAIL"),
			Password: os.Getenv("STIGMA_PASSWORD"),
		},
		Output: OutputConfig{
			CSVPath:      envOr("STIGMA_OUTPUT_CSV", "chronicle_dei_data.csv"),
			JSONPath:     envOr("STIGMA_OUTPUT_JSON", "chronicle_dei_data.json"),
			XLSXPath:     envOr("STIGMA_OUTPUT_EXCEL", "chronicle_dei_data.xlsx"),
			Display:      envBoolOr("STIGMA_DISPLAY", true),
			DisplayLimit: envIntOr("STIGMA_DISPLAY_LIMIT", 50),
		},
		Log: LogConfig{
			Level:  envOr("STIGMA_LOG_LEVEL", "info"),
			Format: envOr("STIGMA_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
