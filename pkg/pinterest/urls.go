package pinterest

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	hostPattern    = regexp.MustCompile(`(?i)(?:^|\.)pinterest\.[a-z.]+$`)
	pinPathPattern = regexp.MustCompile(`(?i)^/pin/\d+/?$`)
)

// shortLinkHosts are share-link domains that always point at a single pin.
var shortLinkHosts = map[string]bool{
	"pin.it": true,
}

// reservedProfileSegments are first path segments that can never be a
// profile handle.
var reservedProfileSegments = map[string]bool{
	"":           true,
	"pin":        true,
	"pins":       true,
	"search":     true,
	"ideas":      true,
	"explore":    true,
	"discover":   true,
	"categories": true,
	"business":   true,
	"about":      true,
	"help":       true,
	"privacy":    true,
	"settings":   true,
	"login":      true,
	"signup":     true,
	"create":     true,
	"shop":       true,
	"_":          true,
}

// NormalizeURL trims the input and defaults the scheme to https.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	return u
}

// IsValidHTTPURL reports whether the string parses as an absolute http(s)
// URL with a host.
func IsValidHTTPURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// ParseURLLines splits a text block into normalized valid URLs (unique, in
// first-seen order) and the raw invalid entries. Blank lines are ignored;
// invalid lines are reported, never silently dropped.
func ParseURLLines(text string) (valid []string, invalid []string) {
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		item := strings.TrimSpace(line)
		if item == "" {
			continue
		}

		normalized := NormalizeURL(item)
		if !IsValidHTTPURL(normalized) {
			invalid = append(invalid, item)
			continue
		}

		if !seen[normalized] {
			valid = append(valid, normalized)
			seen[normalized] = true
		}
	}

	return valid, invalid
}

// IsPinterestHost reports whether the host belongs to the Pinterest domain
// family (any regional TLD) or is a known short-link host.
func IsPinterestHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	if shortLinkHosts[h] {
		return true
	}
	return hostPattern.MatchString(h)
}

// IsPinURL reports whether the URL points at a single pin.
func IsPinURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	if shortLinkHosts[host] {
		return true
	}
	if !IsPinterestHost(host) {
		return false
	}
	return pinPathPattern.MatchString(parsed.Path)
}

// ExtractProfileUsername returns the profile handle from a Pinterest URL, or
// "" when the URL does not name a profile. Reserved system segments and
// underscore-prefixed segments are never handles.
func ExtractProfileUsername(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Host)
	if !IsPinterestHost(host) || shortLinkHosts[host] {
		return ""
	}

	var first string
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment != "" {
			first = segment
			break
		}
	}
	if first == "" {
		return ""
	}

	username := strings.ToLower(strings.TrimSpace(first))
	if reservedProfileSegments[username] || strings.HasPrefix(username, "_") {
		return ""
	}
	return username
}

// IsProfileURL reports whether the URL names an account rather than a pin.
func IsProfileURL(rawURL string) bool {
	if IsPinURL(rawURL) {
		return false
	}
	return ExtractProfileUsername(rawURL) != ""
}

// CanonicalProfileURL builds the canonical URL for a profile handle.
func CanonicalProfileURL(username string) string {
	return "https://www.pinterest.com/" + username + "/"
}

// CanonicalPinURL builds the canonical URL for a pin ID.
func CanonicalPinURL(pinID string) string {
	return "https://www.pinterest.com/pin/" + pinID + "/"
}
