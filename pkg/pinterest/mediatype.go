package pinterest

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// MediaCDNHost is the dedicated image/video hosting domain, distinct from
// the main web domain.
const MediaCDNHost = "i.pinimg.com"

// SizeSegmentPattern matches resize markers like "736x", "236x415".
var SizeSegmentPattern = regexp.MustCompile(`^\d+x\d*$`)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".avif": true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".avi":  true,
	".mkv":  true,
	".3gp":  true,
}

// Stylesheets, scripts and fonts show up in scraped markup constantly and
// must never be offered as media.
var nonMediaExtensions = map[string]bool{
	".woff":  true,
	".woff2": true,
	".ttf":   true,
	".otf":   true,
	".eot":   true,
	".css":   true,
	".js":    true,
}

// IsMediaCDNHost reports whether the host is the pinimg media CDN.
func IsMediaCDNHost(host string) bool {
	h := strings.ToLower(host)
	return h == MediaCDNHost || strings.HasSuffix(h, ".pinimg.com")
}

// InferMediaTypeFromURL maps a URL to image/video/unknown using its
// extension and CDN path-segment heuristics. Unknown is a normal outcome,
// not an error; callers exclude unknown candidates.
func InferMediaTypeFromURL(rawURL string) MediaType {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return MediaTypeUnknown
	}
	lowerPath := strings.ToLower(parsed.Path)
	suffix := strings.ToLower(path.Ext(lowerPath))

	if nonMediaExtensions[suffix] {
		return MediaTypeUnknown
	}
	if imageExtensions[suffix] {
		return MediaTypeImage
	}
	if videoExtensions[suffix] || strings.Contains(lowerPath, "/videos/") {
		return MediaTypeVideo
	}

	if strings.Contains(strings.ToLower(parsed.Host), "pinimg.com") {
		segments := splitPathSegments(lowerPath)
		if len(segments) == 0 {
			return MediaTypeUnknown
		}
		first := segments[0]
		if first == "originals" || SizeSegmentPattern.MatchString(first) {
			return MediaTypeImage
		}
		if strings.HasSuffix(first, "x_rs") && imageExtensions[suffix] {
			return MediaTypeImage
		}
		return MediaTypeUnknown
	}

	return MediaTypeUnknown
}

// InferMediaTypeFromPath maps a local path to image/video/unknown by
// extension alone.
func InferMediaTypeFromPath(pathValue string) MediaType {
	suffix := strings.ToLower(path.Ext(pathValue))
	if videoExtensions[suffix] {
		return MediaTypeVideo
	}
	if imageExtensions[suffix] {
		return MediaTypeImage
	}
	return MediaTypeUnknown
}

// splitPathSegments returns the non-empty segments of a URL path.
func splitPathSegments(urlPath string) []string {
	var segments []string
	for _, segment := range strings.Split(urlPath, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
