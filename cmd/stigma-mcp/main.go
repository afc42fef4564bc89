package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/config"
	"github.com/ch4nbin/stigma-dei-policy-pipeline/scraper"
)

func main() {
	// stdout carries the MCP protocol, so all logging goes to stderr.
	initLogger(config.Load().Log)

	s := server.NewMCPServer(
		"stigma",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	snapshotTool := mcp.NewTool("snapshot_dei_table",
		mcp.WithDescription("Scrape the Chronicle DEI tracking table with a headless browser and return every record as JSON. Credentials come from STIGMA_EMAIL/STIGMA_PASSWORD; without them gated rows may be missing."),
		mcp.WithNumber("max_pages",
			mcp.Description("Stop after this many pages (default: all pages)"),
		),
		mcp.WithBoolean("fast",
			mcp.Description("Use the short delay profile (quicker, slightly higher risk of missing late-rendering panels)"),
		),
	)
	s.AddTool(snapshotTool, handleSnapshot)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// handleSnapshot runs one full scrape in-process and returns the records as
// JSON text. Scrape failures come back as tool errors, not protocol errors.
func handleSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := config.Load()
	// There is no window to sign in through over stdio.
	cfg.Browser.Headless = true

	args := request.GetArguments()
	if v, ok := args["max_pages"].(float64); ok && v > 0 {
		cfg.Scrape.MaxPages = int(v)
	}
	if v, ok := args["fast"].(bool); ok {
		cfg.Scrape.Fast = v
	}

	session, err := scraper.NewSession(cfg.Browser, cfg.Scrape)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("browser start failed: %v", err)), nil
	}
	defer session.Close()

	if err := session.Navigate(ctx, cfg.Scrape.URL); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("navigation failed: %v", err)), nil
	}

	if cfg.Auth.Email != "" && cfg.Auth.Password != "" {
		ok, loginErr := session.Login(ctx, cfg.Auth.Email, cfg.Auth.Password)
		if loginErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("login failed: %v", loginErr)), nil
		}
		if !ok {
			slog.Warn("login unverified, scraping whatever is visible")
		}
	}

	driver := scraper.NewDriver(session, cfg.Scrape)
	result, runErr := driver.Run(ctx)
	if runErr != nil && result.Pages == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("scrape failed before the first page: %v", runErr)), nil
	}

	payload, err := json.MarshalIndent(result.Records, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode records: %v", err)), nil
	}

	header := fmt.Sprintf("%d records from %d pages (stop: %s)\n\n",
		len(result.Records), result.Pages, result.Stop)
	return mcp.NewToolResultText(header + string(payload)), nil
}

// initLogger mirrors the CLI's logger setup but always writes to stderr,
// keeping stdout clean for the protocol.
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
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
