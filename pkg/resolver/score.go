package resolver

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"pindl/pkg/pinterest"
)

var (
	videoResolutionPattern = regexp.MustCompile(`/(\d{3,4})p(?:/|$)`)
	nonDigitPattern        = regexp.MustCompile(`\D`)
)

// buildCandidates expands one normalized URL into scored candidates. Image
// URLs gain an "originals" variant when they carry a resize marker; videos
// stay as a single candidate.
func buildCandidates(rawURL string, mediaType pinterest.MediaType, source, sizeHint string) []pinterest.MediaCandidate {
	if mediaType == pinterest.MediaTypeImage {
		variants := pinimgVariants(rawURL)
		candidates := make([]pinterest.MediaCandidate, 0, len(variants))
		for _, variant := range variants {
			candidates = append(candidates, pinterest.MediaCandidate{
				URL:    variant,
				Type:   pinterest.MediaTypeImage,
				Score:  scoreImage(variant, sizeHint),
				Source: source,
			})
		}
		return candidates
	}

	return []pinterest.MediaCandidate{{
		URL:    rawURL,
		Type:   pinterest.MediaTypeVideo,
		Score:  scoreVideo(rawURL, sizeHint),
		Source: source,
	}}
}

// pinimgVariants returns the URL plus, when its first path segment is a
// resize marker, the equivalent "originals" rewrite inserted ahead of it.
// Both are offered so the downloader can fall back to the resized copy.
func pinimgVariants(rawURL string) []string {
	parsed, err := url.Parse(rawURL)
	if err != nil || !pinterest.IsMediaCDNHost(parsed.Host) {
		return []string{rawURL}
	}

	segments := splitSegments(parsed.Path)
	if len(segments) == 0 {
		return []string{rawURL}
	}

	variants := []string{rawURL}
	first := segments[0]
	if first != "originals" && pinterest.SizeSegmentPattern.MatchString(first) {
		rebuilt := *parsed
		rebuilt.Path = "/" + strings.Join(append([]string{"originals"}, segments[1:]...), "/")
		variants = append([]string{rebuilt.String()}, variants...)
	}

	return dedupeStrings(variants)
}

// scoreImage ranks an image candidate. The absolute numbers are heuristic;
// what matters is the ordering they induce: originals beat any resize,
// larger resizes beat smaller ones, and placeholder thumbnails lose every
// tie without disappearing.
func scoreImage(rawURL, sizeHint string) int {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	path := strings.ToLower(parsed.Path)
	score := 1000

	segments := splitSegments(path)
	resized := len(segments) > 0 && pinterest.SizeSegmentPattern.MatchString(segments[0])

	// The caller's "orig" hint applies to the URL it described, never to a
	// variant whose own path still carries a resize marker.
	if strings.Contains(path, "/originals/") || (strings.EqualFold(sizeHint, "orig") && !resized) {
		score += 9000
	}

	if resized {
		widthText, heightText, _ := strings.Cut(segments[0], "x")
		width, _ := strconv.Atoi(widthText)
		height := width
		if h, err := strconv.Atoi(heightText); err == nil {
			height = h
		}
		score += width + height
	}

	if strings.Contains(path, "75x75_rs") || strings.Contains(path, "facebook_share_image") {
		score -= 6000
	}
	if strings.Contains(path, "/images/") && !strings.Contains(path, "/originals/") {
		score -= 3000
	}

	if pinterest.IsMediaCDNHost(parsed.Host) {
		score += 300
	}

	return score
}

// scoreVideo ranks a video candidate. Videos always start above any image.
func scoreVideo(rawURL, sizeHint string) int {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	path := strings.ToLower(parsed.Path)
	score := 20000

	if match := videoResolutionPattern.FindStringSubmatch(path); match != nil {
		if resolution, err := strconv.Atoi(match[1]); err == nil {
			score += resolution
		}
	}

	if strings.HasSuffix(path, ".mp4") {
		score += 500
	}
	if strings.HasSuffix(path, ".m3u8") {
		score -= 300
	}
	if strings.Contains(path, "hls") {
		score -= 150
	}
	if sizeHint != "" && strings.HasSuffix(strings.ToLower(sizeHint), "p") {
		digits := nonDigitPattern.ReplaceAllString(sizeHint, "")
		if value, err := strconv.Atoi(digits); err == nil {
			score += value
		}
	}

	return score
}

// isPlaceholderImage flags the share-image thumbnails Pinterest injects
// into every page, which would otherwise outnumber the real media.
func isPlaceholderImage(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)

	if strings.Contains(path, "facebook_share_image") {
		return true
	}
	if strings.Contains(path, "/images/") && !strings.Contains(path, "/originals/") {
		return true
	}
	return false
}

func splitSegments(urlPath string) []string {
	var segments []string
	for _, segment := range strings.Split(urlPath, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	deduped := make([]string, 0, len(values))
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			deduped = append(deduped, value)
		}
	}
	return deduped
}
