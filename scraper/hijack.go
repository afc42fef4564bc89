package scraper

import (
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockableTypes maps config strings to Rod protocol resource types.
// Stylesheets and scripts are not blockable here: row expansion and
// pagination run in-page JS and check element visibility, both of which
// need layout and script execution intact.
var blockableTypes = map[string]proto.NetworkResourceType{
	"image": proto.NetworkResourceTypeImage,
	"font":  proto.NetworkResourceTypeFont,
	"media": proto.NetworkResourceTypeMedia,
}

// setupHijack installs a request interceptor on the page that blocks the
// configured resource types.
//
// Returns the running HijackRouter so the caller can Stop() it on close.
// Returns nil if there is nothing to block.
func setupHijack(page *rod.Page, blockedTypes []string) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		rt, ok := blockableTypes[strings.ToLower(name)]
		if !ok {
			slog.Warn("unsupported blocked resource type, ignoring", "type", name)
			continue
		}
		blocked[rt] = struct{}{}
	}
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	slog.Debug("request hijack active", "blockedTypes", blockedTypes)
	return router
}
