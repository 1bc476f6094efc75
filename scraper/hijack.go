package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypeNames translates config-level resource names into the CDP
// resource types Rod reports for intercepted requests.
var resourceTypeNames = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// adDomains lists ad, tracking, and analytics hosts dropped when a request
// enables block_ads. Matching covers subdomains, see isAdDomain.
var adDomains = map[string]struct{}{
	// Ad networks and exchanges.
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"googletagservices.com": {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"criteo.net":            {},
	"outbrain.com":          {},
	"taboola.com":           {},
	"moatads.com":           {},
	"pubmatic.com":          {},
	"rubiconproject.com":    {},
	"zedo.com":              {},
	"media.net":             {},
	"contextweb.com":        {},
	"bidswitch.net":         {},
	"openx.net":             {},
	"casalemedia.com":       {},
	"turn.com":              {},
	"mathtag.com":           {},
	"serving-sys.com":       {},

	// Analytics and data brokers.
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"segment.com":           {},
	"chartbeat.com":         {},
	"chartbeat.net":         {},
	"optimizely.com":        {},
	"demdex.net":            {},
	"krxd.net":              {},
	"bluekai.com":           {},
	"exelator.com":          {},
	"eyeota.net":            {},
	"agkn.com":              {},
	"rlcdn.com":             {},

	// Social and consent widgets.
	"facebook.net":           {},
	"connect.facebook.net":   {},
	"facebook.com":           {},
	"fbcdn.net":              {},
	"analytics.twitter.com":  {},
	"ads-twitter.com":        {},
	"static.ads-twitter.com": {},
	"sharethis.com":          {},
	"addthis.com":            {},
	"consensu.org":           {},
}

// isAdDomain reports whether host or any parent domain appears in adDomains,
// so "pagead2.googlesyndication.com" matches through its parent
// "googlesyndication.com".
func isAdDomain(host string) bool {
	labels := strings.Split(strings.ToLower(host), ".")
	for i := range labels {
		if _, ok := adDomains[strings.Join(labels[i:], ".")]; ok {
			return true
		}
	}
	return false
}

// setupHijack mounts a request interceptor on the page that drops the
// configured resource types and, when blockAds is set, any request to a
// known ad or tracking domain.
//
// The returned router is already running and the caller owns Stop. A nil
// return means nothing needed intercepting.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	drop := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := resourceTypeNames[name]; ok {
			drop[rt] = struct{}{}
		}
	}
	if len(drop) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" with an empty resource type intercepts every request;
	// the handler decides per request whether to fail or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, ok := drop[ctx.Request.Type()]; ok {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		if blockAds {
			if u, err := url.Parse(ctx.Request.URL().String()); err == nil && isAdDomain(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}

		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop, so it gets its own goroutine.
	go router.Run()

	return router
}
