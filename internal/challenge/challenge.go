// Package challenge recognises bot-protection interstitials returned in place
// of the requested page, so a crawl chain can fail cleanly instead of feeding
// a block page to an extractor.
package challenge

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
)

// Page is the part of an HTTP response the detectors look at.
type Page struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Detector examines a page and reports whether a protection vendor blocked
// or challenged the request.
type Detector func(p Page) (detected bool, source string)

// Error is returned for a response identified as a challenge page.
type Error struct {
	Source     string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("challenged by %s (status %d)", e.Source, e.StatusCode)
}

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
		detectInterstitial,
	}
}

// Detect runs the page through detectors in order and returns the first
// source that triggers.
func Detect(p Page, detectors []Detector) (string, bool) {
	for _, d := range detectors {
		if detected, source := d(p); detected {
			return source, true
		}
	}
	return "", false
}

func getHeader(headers http.Header, key string) string {
	if v := headers.Get(key); v != "" {
		return v
	}
	// non-canonical keys set directly on the map
	lowerKey := strings.ToLower(key)
	for k, vals := range headers {
		if strings.ToLower(k) == lowerKey && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func detectCloudflare(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden && p.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(getHeader(p.Headers, "Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	for _, sig := range []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"} {
		if bytes.Contains(p.Body, []byte(sig)) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

func detectAkamai(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(getHeader(p.Headers, "Server")), "akamai") {
		return true, "Akamai"
	}
	if bytes.Contains(p.Body, []byte("Reference #")) && bytes.Contains(p.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(getHeader(p.Headers, "Server")), "datadome") {
		return true, "DataDome"
	}
	if getHeader(p.Headers, "X-DataDome") != "" || getHeader(p.Headers, "X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bytes.Contains(p.Body, []byte("geo.captcha-delivery.com")) || bytes.Contains(p.Body, []byte("datadome")) {
		return true, "DataDome"
	}
	return false, ""
}

func detectPerimeterX(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if getHeader(p.Headers, "X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	for _, sig := range []string{"client.perimeterx.net", "px-captcha", "_pxBlock"} {
		if bytes.Contains(p.Body, []byte(sig)) {
			return true, "PerimeterX"
		}
	}
	return false, ""
}

// interstitialMarkers only appear in challenge widgets, so they identify a
// block page even when it is served with a success status.
var interstitialMarkers = []struct {
	sig    string
	source string
}{
	{"cf-turnstile", "Cloudflare"},
	{"cf-browser-verification", "Cloudflare"},
	{"challenges.cloudflare.com", "Cloudflare"},
	{"geo.captcha-delivery.com", "DataDome"},
	{"px-captcha", "PerimeterX"},
	{"_pxBlock", "PerimeterX"},
}

// detectInterstitial catches challenge pages served with a 2xx status,
// which the status-gated detectors above let through. JSON bodies are
// skipped since review text may quote anything.
func detectInterstitial(p Page) (bool, string) {
	if p.StatusCode < 200 || p.StatusCode >= 300 {
		return false, ""
	}
	trimmed := bytes.TrimSpace(p.Body)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' {
		return false, ""
	}
	for _, m := range interstitialMarkers {
		if bytes.Contains(trimmed, []byte(m.sig)) {
			return true, m.source
		}
	}
	return false, ""
}
