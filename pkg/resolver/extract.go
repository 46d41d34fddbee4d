package resolver

import (
	"encoding/json"
	"regexp"
	"strings"

	"pindl/pkg/pinterest"
)

// Markup strategies, each a pure function of (pageText, baseURL). They run
// in order: meta tags and structured data first, the broad CDN regex only
// when nothing structured matched.
var metaImagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']+)`),
	regexp.MustCompile(`(?i)<meta[^>]+content=["']([^"']+)["'][^>]+property=["']og:image`),
	regexp.MustCompile(`(?i)<meta[^>]+name=["']twitter:image(?::src)?["'][^>]+content=["']([^"']+)`),
}

var ldJSONPattern = regexp.MustCompile(
	`(?is)<script[^>]*type=["']application/ld\+json["'][^>]*>(.*?)</script>`)

// hostedMediaPattern catches CDN URLs in both their literal and
// backslash-escaped (JS string embedded) forms.
var hostedMediaPattern = regexp.MustCompile(
	`(?i)https?:\\/\\/(?:[a-z0-9-]+\.)?pinimg\.com[^"'<>\s)\]}]+|https?://(?:[a-z0-9-]+\.)?pinimg\.com[^"'<>\s)\]}]+`)

// extractHTMLCandidates scrapes meta tags, LD-JSON blocks and, failing
// those, any CDN URL visible anywhere in the page text.
func (r *Resolver) extractHTMLCandidates(pageText, baseURL string) []pinterest.MediaCandidate {
	var candidates []pinterest.MediaCandidate

	for _, pattern := range metaImagePatterns {
		for _, match := range pattern.FindAllStringSubmatch(pageText, -1) {
			normalized := pinterest.NormalizeCandidate(match[1], baseURL)
			if normalized == "" || isPlaceholderImage(normalized) {
				continue
			}
			candidates = append(candidates,
				buildCandidates(normalized, pinterest.MediaTypeImage, "meta", "meta")...)
		}
	}

	candidates = append(candidates, extractLDJSONCandidates(pageText, baseURL)...)

	if len(candidates) > 0 {
		return sortAndDedupe(candidates)
	}

	for _, match := range hostedMediaPattern.FindAllString(pageText, -1) {
		normalized := pinterest.NormalizeCandidate(match, baseURL)
		if normalized == "" {
			continue
		}

		mediaType := pinterest.InferMediaTypeFromURL(normalized)
		if mediaType == pinterest.MediaTypeUnknown {
			continue
		}
		if mediaType == pinterest.MediaTypeImage && isPlaceholderImage(normalized) {
			continue
		}

		candidates = append(candidates, buildCandidates(normalized, mediaType, "html-regex", "")...)
	}

	return sortAndDedupe(candidates)
}

// extractLDJSONCandidates walks every structured-data script block.
func extractLDJSONCandidates(pageText, baseURL string) []pinterest.MediaCandidate {
	var candidates []pinterest.MediaCandidate
	for _, match := range ldJSONPattern.FindAllStringSubmatch(pageText, -1) {
		rawJSON := strings.TrimSpace(match[1])
		if rawJSON == "" {
			continue
		}

		var payload interface{}
		if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
			continue
		}

		candidates = append(candidates,
			extractCandidatesFromObject(payload, baseURL, "ldjson", pinterest.MediaTypeUnknown)...)
	}
	return sortAndDedupe(candidates)
}

// extractCandidatesFromObject recursively walks an untyped JSON value and
// turns every string that looks like a URL into candidates. The key under
// which a string was found travels down as a size hint for scoring; an
// optional media-type hint restricts what the walk accepts.
func extractCandidatesFromObject(payload interface{}, baseURL, source string, typeHint pinterest.MediaType) []pinterest.MediaCandidate {
	var candidates []pinterest.MediaCandidate

	var walk func(value interface{}, keyHint string)
	walk = func(value interface{}, keyHint string) {
		switch typed := value.(type) {
		case map[string]interface{}:
			for key, nested := range typed {
				walk(nested, key)
			}
		case []interface{}:
			for _, nested := range typed {
				walk(nested, keyHint)
			}
		case string:
			if !strings.Contains(typed, "http") && !strings.Contains(typed, `\/`) {
				return
			}

			normalized := pinterest.NormalizeCandidate(typed, baseURL)
			if normalized == "" {
				return
			}

			mediaType := pinterest.InferMediaTypeFromURL(normalized)
			if mediaType == pinterest.MediaTypeUnknown {
				return
			}
			if typeHint != pinterest.MediaTypeUnknown && mediaType != typeHint {
				return
			}
			if mediaType == pinterest.MediaTypeImage && isPlaceholderImage(normalized) {
				return
			}

			candidates = append(candidates, buildCandidates(normalized, mediaType, source, keyHint)...)
		}
	}

	walk(payload, "")
	return sortAndDedupe(candidates)
}
