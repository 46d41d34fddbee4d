// Package profile discovers every pin belonging to an account by paginating
// the private UserPinsResource endpoint, falling back to scraping the
// profile page when its embedded state blob is missing or unrecognized.
package profile

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"

	"pindl/pkg/errors"
	"pindl/pkg/logger"
	"pindl/pkg/pinterest"
	"pindl/pkg/ratelimit"
)

var (
	initialPropsPattern = regexp.MustCompile(
		`(?s)<script id="__PWS_INITIAL_PROPS__" type="application/json">(.*?)</script>`)
	pinPathPattern = regexp.MustCompile(`(?i)/pin/(\d+)/`)
)

// Result describes one enumerated profile.
type Result struct {
	ProfileURL      string
	Username        string
	PinURLs         []string
	DiscoveredCount int
}

// Enumerator collects all pin URLs of a profile.
type Enumerator struct {
	client  *pinterest.Client
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// New creates an Enumerator sharing the batch client session. The limiter
// spaces out listing-endpoint calls; it may be nil.
func New(client *pinterest.Client, limiter ratelimit.Limiter, log logger.Logger) *Enumerator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Enumerator{client: client, limiter: limiter, logger: log}
}

// Enumerate expands a profile URL into the pins it contains. maxPins > 0
// truncates the output; DiscoveredCount still reflects everything seen
// before truncation. Enumerate fails only when no pin survives every
// fallback.
func (e *Enumerator) Enumerate(ctx context.Context, profileURL string, maxPins int) (*Result, error) {
	normalized := pinterest.NormalizeURL(profileURL)
	if !pinterest.IsValidHTTPURL(normalized) {
		return nil, errors.New(errors.ErrorTypeInvalidInput, "invalid profile URL format")
	}

	username := pinterest.ExtractProfileUsername(normalized)
	if username == "" {
		return nil, errors.New(errors.ErrorTypeEnumeration,
			"could not detect Pinterest profile username from this URL")
	}

	canonicalProfile := pinterest.CanonicalProfileURL(username)

	_, body, err := e.client.FetchPage(e.client.ProfilePageURL(username))
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeEnumeration, "failed to fetch profile page: %v", err)
	}
	pageText := string(body)

	entry := extractUserPinsEntry(pageText)
	if entry == nil {
		// Degraded path: the page's internal data shape is unrecognized,
		// so scan the raw HTML for pin references instead.
		fallback := extractPinURLsFromHTML(pageText)
		deduped := dedupePinURLs(fallback)
		discovered := len(deduped)
		deduped = truncate(deduped, maxPins)
		if len(deduped) == 0 {
			return nil, errors.New(errors.ErrorTypeEnumeration, "no pins were detected on this profile")
		}
		return &Result{
			ProfileURL:      canonicalProfile,
			Username:        username,
			PinURLs:         deduped,
			DiscoveredCount: discovered,
		}, nil
	}

	collected := extractPinURLsFromRows(entry.Data)
	bookmark := entry.NextBookmark

	seenBookmarks := make(map[string]bool)
	for canContinue(bookmark, maxPins, len(collected)) {
		if ctx.Err() != nil {
			break
		}
		if seenBookmarks[bookmark] {
			// Cycle guard: a repeated bookmark would loop forever.
			e.logger.WarnWithFields("pagination bookmark repeated, stopping", map[string]interface{}{
				"username": username,
				"bookmark": bookmark,
			})
			break
		}
		seenBookmarks[bookmark] = true

		if e.limiter != nil {
			e.limiter.Wait()
		}

		rows, nextBookmark, err := e.fetchPinsPage(username, bookmark)
		if err != nil {
			return nil, errors.Newf(errors.ErrorTypeEnumeration, "failed to fetch profile pins page: %v", err)
		}
		if len(rows) == 0 {
			break
		}

		collected = append(collected, extractPinURLsFromRows(rows)...)
		bookmark = nextBookmark
	}

	deduped := dedupePinURLs(collected)
	discovered := len(deduped)
	deduped = truncate(deduped, maxPins)
	if len(deduped) == 0 {
		return nil, errors.New(errors.ErrorTypeEnumeration, "no downloadable pins found on this profile")
	}

	e.logger.InfoWithFields("profile enumeration complete", map[string]interface{}{
		"username":   username,
		"discovered": discovered,
		"returned":   len(deduped),
	})

	return &Result{
		ProfileURL:      canonicalProfile,
		Username:        username,
		PinURLs:         deduped,
		DiscoveredCount: discovered,
	}, nil
}

// fetchPinsPage requests one listing page. A 403 or an unparseable body
// means the listing has ended, not that the enumeration failed.
func (e *Enumerator) fetchPinsPage(username, bookmark string) ([]map[string]interface{}, string, error) {
	response, err := e.client.FetchUserPins(username, bookmark)
	if err != nil {
		if apiErr, ok := err.(*errors.Error); ok {
			switch apiErr.Type {
			case errors.ErrorTypeForbidden, errors.ErrorTypeParsing:
				return nil, pinterest.TerminalBookmark, nil
			}
		}
		return nil, "", err
	}

	nextBookmark := pinterest.TerminalBookmark
	if value, ok := response.ResourceResponse.Bookmark.(string); ok && value != "" {
		nextBookmark = value
	}

	return response.ResourceResponse.Data, nextBookmark, nil
}

// userPinsEntry is the slice of the initial-state blob the enumerator
// cares about: the preloaded first page and its continuation bookmark.
type userPinsEntry struct {
	Data         []map[string]interface{}
	NextBookmark string
}

// extractUserPinsEntry digs the first UserPinsResource entry out of the
// page's initial-props script. Only one entry is expected in the initial
// payload, so any entry will do.
func extractUserPinsEntry(pageText string) *userPinsEntry {
	match := initialPropsPattern.FindStringSubmatch(pageText)
	if match == nil {
		return nil
	}

	var props struct {
		InitialReduxState struct {
			Resources map[string]map[string]struct {
				Data         []map[string]interface{} `json:"data"`
				NextBookmark interface{}              `json:"nextBookmark"`
			} `json:"resources"`
		} `json:"initialReduxState"`
	}
	if err := json.Unmarshal([]byte(match[1]), &props); err != nil {
		return nil
	}

	entries := props.InitialReduxState.Resources["UserPinsResource"]
	for _, entry := range entries {
		bookmark := ""
		if value, ok := entry.NextBookmark.(string); ok {
			bookmark = value
		}
		return &userPinsEntry{Data: entry.Data, NextBookmark: bookmark}
	}
	return nil
}

// extractPinURLsFromRows pulls canonical pin URLs out of listing rows,
// preferring each row's pre-built slug and falling back to a bare ID.
func extractPinURLsFromRows(rows []map[string]interface{}) []string {
	var urls []string
	for _, row := range rows {
		if row == nil {
			continue
		}

		if seoURL, ok := row["seo_url"].(string); ok {
			if match := pinPathPattern.FindStringSubmatch(seoURL); match != nil {
				urls = append(urls, pinterest.CanonicalPinURL(match[1]))
				continue
			}
		}

		if pinID, ok := row["id"].(string); ok && isDigits(pinID) {
			urls = append(urls, pinterest.CanonicalPinURL(pinID))
		}
	}
	return urls
}

// extractPinURLsFromHTML scans raw markup for pin-path references.
func extractPinURLsFromHTML(pageText string) []string {
	var urls []string
	for _, match := range pinPathPattern.FindAllStringSubmatch(pageText, -1) {
		urls = append(urls, pinterest.CanonicalPinURL(match[1]))
	}
	return urls
}

// canContinue decides whether another listing page should be fetched.
func canContinue(bookmark string, maxPins, currentCount int) bool {
	if maxPins > 0 && currentCount >= maxPins {
		return false
	}
	if bookmark == "" || bookmark == pinterest.TerminalBookmark {
		return false
	}
	return true
}

// dedupePinURLs removes duplicates, ignoring query string and fragment.
func dedupePinURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var deduped []string
	for _, raw := range urls {
		normalized := stripQueryFragment(raw)
		if !seen[normalized] {
			seen[normalized] = true
			deduped = append(deduped, normalized)
		}
	}
	return deduped
}

func stripQueryFragment(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

func truncate(urls []string, maxPins int) []string {
	if maxPins > 0 && len(urls) > maxPins {
		return urls[:maxPins]
	}
	return urls
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
