package provider

import (
	"regexp"
	"strings"
)

var (
	shortcodeRe = regexp.MustCompile(`instagram\.com/(?:reel|p)/([A-Za-z0-9_-]+)`)
	profileRe   = regexp.MustCompile(`instagram\.com/([A-Za-z0-9._]+)/?$`)
)

// NormalizeURL strips the query string and any trailing slash from a post
// URL so equal posts compare equal.
func NormalizeURL(url string) string {
	normalized := strings.TrimSpace(url)
	if i := strings.Index(normalized, "?"); i >= 0 {
		normalized = normalized[:i]
	}
	return strings.TrimSuffix(normalized, "/")
}

// Shortcode extracts the opaque content key from a /reel/ or /p/ URL.
// Returns "" when the URL is not a post link.
func Shortcode(url string) string {
	if m := shortcodeRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// ProfileHandle extracts a creator handle from a profile URL.
// Returns "" when the URL is a post link or not a profile at all.
func ProfileHandle(url string) string {
	m := profileRe.FindStringSubmatch(NormalizeURL(url))
	if m == nil {
		return ""
	}
	switch m[1] {
	case "reel", "p", "tv":
		return ""
	}
	return m[1]
}
