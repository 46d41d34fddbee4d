package pinterest

// MediaType classifies a candidate URL by the kind of asset it points at.
type MediaType string

const (
	MediaTypeImage   MediaType = "image"
	MediaTypeVideo   MediaType = "video"
	MediaTypeUnknown MediaType = ""
)

// MediaCandidate is one possible media URL for a pin, with a quality score
// used to rank it against other candidates for the same pin. Candidates are
// immutable once constructed; identity is (Type, URL).
type MediaCandidate struct {
	URL    string
	Type   MediaType
	Score  int
	Source string
}

// PinInfoResponse is the envelope returned by the pidgets pin-info endpoint.
// The per-pin payload is left untyped because its shape is not stable; the
// resolver walks it generically.
type PinInfoResponse struct {
	Data []map[string]interface{} `json:"data"`
}

// OEmbedResponse is the subset of the oEmbed payload the resolver uses.
type OEmbedResponse struct {
	ThumbnailURL string `json:"thumbnail_url"`
	URL          string `json:"url"`
	HTML         string `json:"html"`
}

// UserPinsResponse is the envelope returned by the paginated UserPinsResource
// endpoint. Bookmark is untyped because the site reports it inconsistently;
// anything that is not a non-empty string means the pagination is done.
type UserPinsResponse struct {
	ResourceResponse struct {
		Data     []map[string]interface{} `json:"data"`
		Bookmark interface{}              `json:"bookmark"`
	} `json:"resource_response"`
}
