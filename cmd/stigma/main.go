package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/config"
	"github.com/ch4nbin/stigma-dei-policy-pipeline/export"
	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
	"github.com/ch4nbin/stigma-dei-policy-pipeline/scraper"
)

var rootCmd = &cobra.Command{
	Use:   "stigma",
	Short: "Snapshot the Chronicle DEI tracking table to CSV, JSON, and XLSX",
	Long: `stigma drives a real browser through the Chronicle of Higher Education's
DEI-legislation tracking table: it signs in (or pauses for a manual login),
expands every row's hidden detail panel, walks the pagination, and saves one
record per institution to CSV, JSON, and XLSX.

Whatever was collected is always saved, even when the run stops early. Every
flag can also be set through a STIGMA_* environment variable.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.String("email", "", "account email (STIGMA_EMAIL); without credentials the run pauses for a manual login")
	f.String("password", "", "account password (STIGMA_PASSWORD)")
	f.Bool("headless", false, "run the browser without a window")
	f.Bool("no-expand", false, "skip row expansion; detail fields stay empty")
	f.Bool("no-display", false, "skip the terminal table at the end")
	f.Bool("fast", false, "use the short delay profile")
	f.Int("max-pages", 0, "stop after this many pages (0 = all)")
	f.String("output-csv", "chronicle_dei_data.csv", "CSV output path")
	f.String("output-json", "chronicle_dei_data.json", "JSON output path")
	f.String("output-excel", "chronicle_dei_data.xlsx", "XLSX output path")
}

func main() {
	// A signal mid-run cancels the context; the driver hands back whatever
	// it collected and the exports still happen.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// ── 1. Configuration: environment first, flags override ──────────
	cfg := config.Load()
	applyFlags(cmd, cfg)

	// ── 2. Structured logging ─────────────────────────────────────────
	initLogger(cfg.Log)
	slog.Info("stigma starting",
		"url", cfg.Scrape.URL,
		"headless", cfg.Browser.Headless,
		"maxPages", cfg.Scrape.MaxPages,
		"fast", cfg.Scrape.Fast,
		"expandRows", cfg.Scrape.ExpandRows,
	)

	ctx := cmd.Context()

	// ── 3. Preflight probe (advisory only) ────────────────────────────
	scraper.NewPreflight(cfg.Browser.Proxy).Check(ctx, cfg.Scrape.URL)

	// ── 4. Browser session ────────────────────────────────────────────
	session, err := scraper.NewSession(cfg.Browser, cfg.Scrape)
	if err != nil {
		slog.Error("browser session failed to start", "error", err)
		return err
	}
	defer session.Close()

	if err := session.Navigate(ctx, cfg.Scrape.URL); err != nil {
		slog.Error("navigation failed", "url", cfg.Scrape.URL, "error", err)
		return err
	}

	// ── 5. Authentication ─────────────────────────────────────────────
	if cfg.Auth.Email != "" && cfg.Auth.Password != "" {
		ok, loginErr := session.Login(ctx, cfg.Auth.Email, cfg.Auth.Password)
		if loginErr != nil {
			slog.Error("login failed", "error", loginErr)
			return loginErr
		}
		if !ok {
			slog.Warn("proceeding without a verified login; gated rows may be missing")
		}
	} else {
		session.AwaitManualLogin(os.Stdin, os.Stdout)
	}

	// ── 6. Scrape every page ──────────────────────────────────────────
	driver := scraper.NewDriver(session, cfg.Scrape)
	result, runErr := driver.Run(ctx)

	// ── 7. Save whatever was collected, even after a failed run ──────
	exportFailures := exportAll(cfg.Output, result.Records)

	// ── 8. Terminal table ─────────────────────────────────────────────
	if cfg.Output.Display {
		export.RenderTable(os.Stdout, result.Records, cfg.Output.DisplayLimit)
	}

	summarize(cfg.Output, result, runErr)

	// Only a run with zero processed pages is a failure; partial data
	// already on disk counts as success.
	if runErr != nil && result.Pages == 0 {
		return runErr
	}
	if exportFailures == 3 {
		return errors.New("no output file could be written")
	}
	return nil
}

// applyFlags overrides the env-derived config with any flag the user set
// explicitly. Untouched flags leave the environment values alone.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("email") {
		cfg.Auth.Email, _ = f.GetString("email")
	}
	if f.Changed("password") {
		cfg.Auth.Password, _ = f.GetString("password")
	}
	if f.Changed("headless") {
		cfg.Browser.Headless, _ = f.GetBool("headless")
	}
	if f.Changed("no-expand") {
		noExpand, _ := f.GetBool("no-expand")
		cfg.Scrape.ExpandRows = !noExpand
	}
	if f.Changed("no-display") {
		noDisplay, _ := f.GetBool("no-display")
		cfg.Output.Display = !noDisplay
	}
	if f.Changed("fast") {
		cfg.Scrape.Fast, _ = f.GetBool("fast")
	}
	if f.Changed("max-pages") {
		cfg.Scrape.MaxPages, _ = f.GetInt("max-pages")
	}
	if f.Changed("output-csv") {
		cfg.Output.CSVPath, _ = f.GetString("output-csv")
	}
	if f.Changed("output-json") {
		cfg.Output.JSONPath, _ = f.GetString("output-json")
	}
	if f.Changed("output-excel") {
		cfg.Output.XLSXPath, _ = f.GetString("output-excel")
	}
}

// exportAll writes all three formats and returns how many writers failed.
// One bad path must not keep the other formats from saving.
func exportAll(out config.OutputConfig, records []models.Record) int {
	failures := 0
	if err := export.WriteCSV(records, out.CSVPath); err != nil {
		slog.Error("csv export failed", "path", out.CSVPath, "error", err)
		failures++
	} else {
		slog.Info("csv saved", "path", out.CSVPath, "records", len(records))
	}
	if err := export.WriteJSON(records, out.JSONPath); err != nil {
		slog.Error("json export failed", "path", out.JSONPath, "error", err)
		failures++
	} else {
		slog.Info("json saved", "path", out.JSONPath, "records", len(records))
	}
	if err := export.WriteXLSX(records, out.XLSXPath); err != nil {
		slog.Error("xlsx export failed", "path", out.XLSXPath, "error", err)
		failures++
	} else {
		slog.Info("xlsx saved", "path", out.XLSXPath, "records", len(records))
	}
	return failures
}

// summarize prints the end-of-run message, keeping "no more pages",
// "page limit reached", and "run aborted" clearly distinguishable.
func summarize(out config.OutputConfig, result *models.ScrapeResult, runErr error) {
	attrs := []any{
		"records", len(result.Records),
		"pages", result.Pages,
		"csv", out.CSVPath,
		"json", out.JSONPath,
		"xlsx", out.XLSXPath,
	}
	switch result.Stop {
	case models.StopEndOfData:
		slog.Info("run complete: no more pages", attrs...)
	case models.StopPageLimit:
		slog.Info("run complete: configured page limit reached", attrs...)
	case models.StopSafetyCeiling:
		slog.Warn("run stopped: safety page ceiling reached", attrs...)
	case models.StopAborted:
		slog.Warn("run aborted early; partial results saved", append(attrs, "error", runErr)...)
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
