// Package resolver maps one pin URL to a ranked list of downloadable media
// candidates. Strategies run as a cascade: direct CDN fast path, redirect
// fast path, pin-ID lookup through the pidgets API, and HTML scraping with
// oEmbed merge. The first strategy to produce candidates wins; only the
// exhaustion of every strategy is an error.
package resolver

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"pindl/pkg/errors"
	"pindl/pkg/logger"
	"pindl/pkg/pinterest"
)

var (
	pinIDPathPattern   = regexp.MustCompile(`/pin/(\d+)`)
	oembedPinIDPattern = regexp.MustCompile(`[?&]id=(\d+)`)
)

// preferredMediaHosts are the first-party hosting domains favoured by the
// HTML fallback post-filter: when any video or first-party candidate
// exists, third-party embeds scraped from the same page are dropped.
var preferredMediaHosts = map[string]bool{
	"i.pinimg.com":  true,
	"v1.pinimg.com": true,
}

// Resolver runs the strategy cascade over single pin URLs.
type Resolver struct {
	client *pinterest.Client
	logger logger.Logger
}

// New creates a Resolver on top of a shared client session.
func New(client *pinterest.Client, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{client: client, logger: log}
}

// Resolve returns the ranked, deduplicated media candidates for a pin URL.
// The result is non-empty on success, sorted by descending quality score.
func (r *Resolver) Resolve(pinURL string) ([]pinterest.MediaCandidate, error) {
	normalized := pinterest.NormalizeURL(pinURL)
	if !pinterest.IsValidHTTPURL(normalized) {
		return nil, errors.New(errors.ErrorTypeInvalidInput, "invalid URL format")
	}

	// Direct fast path: a CDN media URL needs no page fetch at all.
	if candidates := r.directCandidates(normalized, "direct"); len(candidates) > 0 {
		return candidates, nil
	}

	finalURL, body, err := r.client.FetchPage(normalized)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeResolution, "failed to fetch pin page: %v", err)
	}
	pageText := string(body)

	// Redirect fast path: short links often land directly on the CDN.
	if candidates := r.directCandidates(finalURL, "redirect"); len(candidates) > 0 {
		return candidates, nil
	}

	pinID := extractPinID(finalURL)
	if pinID == "" {
		pinID = extractPinID(normalized)
	}
	if pinID == "" {
		pinID = extractPinID(pageText)
	}
	if pinID == "" {
		pinID = r.resolvePinIDViaOEmbed(finalURL)
	}

	if pinID != "" {
		if candidates := r.fetchPinAPICandidates(pinID); len(candidates) > 0 {
			return candidates, nil
		}
	}

	candidates := r.extractHTMLCandidates(pageText, finalURL)
	candidates = append(candidates, r.fetchOEmbedCandidates(finalURL)...)

	deduped := sortAndDedupe(candidates)
	preferred := make([]pinterest.MediaCandidate, 0, len(deduped))
	for _, item := range deduped {
		if item.Type == pinterest.MediaTypeVideo || preferredMediaHosts[candidateHost(item.URL)] {
			preferred = append(preferred, item)
		}
	}
	if len(preferred) > 0 {
		deduped = preferred
	}

	if len(deduped) == 0 {
		return nil, errors.New(errors.ErrorTypeResolution,
			"could not detect image or video media on this Pinterest page")
	}
	return deduped, nil
}

// ResolveImageURLs is the image-only projection of Resolve.
func (r *Resolver) ResolveImageURLs(pinURL string) ([]string, error) {
	candidates, err := r.Resolve(pinURL)
	if err != nil {
		return nil, err
	}

	var imageURLs []string
	for _, item := range candidates {
		if item.Type == pinterest.MediaTypeImage {
			imageURLs = append(imageURLs, item.URL)
		}
	}
	if len(imageURLs) == 0 {
		return nil, errors.New(errors.ErrorTypeResolution, "no downloadable image found for this URL")
	}
	return imageURLs, nil
}

// directCandidates returns ranked variants when the URL itself is already a
// typed CDN media URL, and nil otherwise.
func (r *Resolver) directCandidates(rawURL, source string) []pinterest.MediaCandidate {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	if !pinterest.IsMediaCDNHost(parsed.Host) {
		return nil
	}
	mediaType := pinterest.InferMediaTypeFromURL(rawURL)
	if mediaType == pinterest.MediaTypeUnknown {
		return nil
	}
	return sortAndDedupe(buildCandidates(rawURL, mediaType, source, "orig"))
}

// fetchPinAPICandidates walks the pidgets pin-info payload for media URLs.
// Any failure here means "strategy yielded nothing", never a hard error.
func (r *Resolver) fetchPinAPICandidates(pinID string) []pinterest.MediaCandidate {
	response, err := r.client.FetchPinInfo(pinID)
	if err != nil {
		r.logger.DebugWithFields("pin info lookup failed", map[string]interface{}{
			"pin_id": pinID,
			"error":  err.Error(),
		})
		return nil
	}
	if len(response.Data) == 0 || response.Data[0] == nil {
		return nil
	}

	pinData := response.Data[0]
	baseURL := pinterest.CanonicalPinURL(pinID)
	var candidates []pinterest.MediaCandidate

	// The images map keys every entry by a size label ("236x", "orig").
	if images, ok := pinData["images"].(map[string]interface{}); ok {
		for sizeKey, details := range images {
			detailMap, ok := details.(map[string]interface{})
			if !ok {
				continue
			}
			rawURL, ok := detailMap["url"].(string)
			if !ok {
				continue
			}
			normalized := pinterest.NormalizeCandidate(rawURL, baseURL)
			if normalized == "" || isPlaceholderImage(normalized) {
				continue
			}
			candidates = append(candidates,
				buildCandidates(normalized, pinterest.MediaTypeImage, "api-images", sizeKey)...)
		}
	}

	if videos, ok := pinData["videos"]; ok && videos != nil {
		candidates = append(candidates,
			extractCandidatesFromObject(videos, baseURL, "api-videos", pinterest.MediaTypeVideo)...)
	}

	if storyData, ok := pinData["story_pin_data"]; ok && storyData != nil {
		candidates = append(candidates,
			extractCandidatesFromObject(storyData, baseURL, "api-story", pinterest.MediaTypeUnknown)...)
	}

	// Video pins sometimes bury their stream URLs in unrelated subtrees,
	// so the whole payload gets one more video-only pass.
	if isVideo, ok := pinData["is_video"].(bool); ok && isVideo {
		candidates = append(candidates,
			extractCandidatesFromObject(map[string]interface{}(pinData), baseURL, "api-fallback", pinterest.MediaTypeVideo)...)
	}

	return sortAndDedupe(candidates)
}

// resolvePinIDViaOEmbed extracts a pin ID from the embed HTML when none is
// visible in the URLs or the page body.
func (r *Resolver) resolvePinIDViaOEmbed(pageURL string) string {
	response, err := r.client.FetchOEmbed(pageURL)
	if err != nil {
		return ""
	}
	if match := oembedPinIDPattern.FindStringSubmatch(response.HTML); match != nil {
		return match[1]
	}
	return ""
}

// fetchOEmbedCandidates merges the embed thumbnail and canonical URL into
// the HTML fallback's candidate pool.
func (r *Resolver) fetchOEmbedCandidates(pageURL string) []pinterest.MediaCandidate {
	response, err := r.client.FetchOEmbed(pageURL)
	if err != nil {
		return nil
	}

	fields := []struct {
		key   string
		value string
	}{
		{"thumbnail_url", response.ThumbnailURL},
		{"url", response.URL},
	}

	var candidates []pinterest.MediaCandidate
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		normalized := pinterest.NormalizeCandidate(field.value, pageURL)
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
		candidates = append(candidates,
			buildCandidates(normalized, mediaType, "oembed-"+field.key, field.key)...)
	}

	return sortAndDedupe(candidates)
}

// extractPinID finds the first numeric pin identifier in a URL or page body.
func extractPinID(text string) string {
	if match := pinIDPathPattern.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	return ""
}

func candidateHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// sortAndDedupe groups candidates by (type, URL) keeping the highest score
// per group, then orders the survivors by descending score. First-seen
// order breaks ties so output stays deterministic.
func sortAndDedupe(candidates []pinterest.MediaCandidate) []pinterest.MediaCandidate {
	type key struct {
		mediaType pinterest.MediaType
		url       string
	}

	best := make(map[key]pinterest.MediaCandidate)
	var order []key
	for _, item := range candidates {
		k := key{item.Type, item.URL}
		existing, seen := best[k]
		if !seen {
			order = append(order, k)
			best[k] = item
			continue
		}
		if item.Score > existing.Score {
			best[k] = item
		}
	}

	ranked := make([]pinterest.MediaCandidate, 0, len(order))
	for _, k := range order {
		ranked = append(ranked, best[k])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
