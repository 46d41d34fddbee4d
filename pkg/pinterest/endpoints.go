package pinterest

import (
	"encoding/json"
	"net/url"
)

const (
	// WebBaseURL is the base URL for the Pinterest web site
	WebBaseURL = "https://www.pinterest.com"

	// APIBaseURL is the base URL for the public-facing pidgets API
	APIBaseURL = "https://api.pinterest.com"

	// PinInfoEndpoint serves per-pin metadata for embed widgets
	PinInfoEndpoint = "/v3/pidgets/pins/info/"

	// OEmbedEndpoint serves embed metadata for any Pinterest page
	OEmbedEndpoint = "/oembed.json"

	// UserPinsEndpoint is the private paginated listing of a profile's pins
	UserPinsEndpoint = "/resource/UserPinsResource/get/"

	// TerminalBookmark is the sentinel the listing endpoint reports when
	// there are no more pages
	TerminalBookmark = "-end-"
)

// pinInfoURL builds the pidgets pin-info request URL.
func pinInfoURL(apiBase, pinID string) string {
	params := url.Values{}
	params.Set("pin_ids", pinID)
	return apiBase + PinInfoEndpoint + "?" + params.Encode()
}

// oembedURL builds the oEmbed probe URL for a page.
func oembedURL(webBase, pageURL string) string {
	params := url.Values{}
	params.Set("url", pageURL)
	return webBase + OEmbedEndpoint + "?" + params.Encode()
}

// userPinsOptions is the options payload the listing endpoint expects,
// JSON-encoded into a single query parameter.
type userPinsOptions struct {
	AddVase          bool     `json:"add_vase"`
	FieldSetKey      string   `json:"field_set_key"`
	IsOwnProfilePins bool     `json:"is_own_profile_pins"`
	Username         string   `json:"username"`
	Bookmarks        []string `json:"bookmarks"`
}

type userPinsPayload struct {
	Options userPinsOptions `json:"options"`
	Context struct{}        `json:"context"`
}

// userPinsURL builds the paginated listing request URL. The endpoint takes
// a POST but carries all its arguments as query parameters.
func userPinsURL(webBase, username, bookmark string) string {
	payload := userPinsPayload{
		Options: userPinsOptions{
			AddVase:          true,
			FieldSetKey:      "mobile_grid_item",
			IsOwnProfilePins: false,
			Username:         username,
			Bookmarks:        []string{bookmark},
		},
	}
	data, _ := json.Marshal(payload)

	params := url.Values{}
	params.Set("source_url", "/"+username+"/")
	params.Set("data", string(data))
	params.Set("_", "1700000000000")

	return webBase + UserPinsEndpoint + "?" + params.Encode()
}
