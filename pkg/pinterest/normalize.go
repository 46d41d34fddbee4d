package pinterest

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// normalizedURLPattern re-matches a cleaned candidate and truncates it at
// the first character that cannot appear in a sane URL (quote, whitespace,
// angle bracket, closing brace).
var normalizedURLPattern = regexp.MustCompile(`(?i)^https?://[^\s"'<>)\]}]+`)

// NormalizeCandidate cleans a raw string extracted from HTML or JSON into a
// canonical absolute URL, resolving relative references against baseURL.
// It returns "" when no usable URL survives. Every step is idempotent, so
// an already-canonical absolute URL passes through unchanged.
func NormalizeCandidate(value, baseURL string) string {
	candidate := html.UnescapeString(strings.TrimSpace(value))
	if candidate == "" {
		return ""
	}

	// Escaped separators from JSON/JS string contexts.
	candidate = strings.ReplaceAll(candidate, `\/`, "/")
	candidate = strings.ReplaceAll(candidate, "\\u002F", "/")
	candidate = strings.ReplaceAll(candidate, "\\u0026", "&")
	candidate = strings.ReplaceAll(candidate, "&amp;", "&")

	candidate = strings.Trim(candidate, `"' ),`)

	// Cut attribute runoff before resolving; serializing the resolved URL
	// would percent-encode the junk instead of leaving it for the re-match.
	if idx := strings.IndexAny(candidate, " \t\n\f\r\"'<>)]}"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if candidate == "" {
		return ""
	}

	if strings.HasPrefix(candidate, "//") {
		candidate = "https:" + candidate
	}
	candidate = resolveAgainst(baseURL, candidate)
	candidate = strings.TrimRight(candidate, ".,;")

	candidate = normalizedURLPattern.FindString(candidate)
	if candidate == "" {
		return ""
	}

	if !IsValidHTTPURL(candidate) {
		return ""
	}

	return candidate
}

// resolveAgainst resolves ref against base, falling back to ref untouched
// when either side does not parse.
func resolveAgainst(base, ref string) string {
	baseParsed, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refParsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseParsed.ResolveReference(refParsed).String()
}
