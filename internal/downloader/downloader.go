// Package downloader turns a ranked candidate list into one file on disk.
// Candidates are attempted strictly in rank order; the first that streams
// successfully wins and no candidate is ever retried.
package downloader

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"pindl/pkg/errors"
	"pindl/pkg/logger"
	"pindl/pkg/pinterest"
	"pindl/pkg/storage"
)

var imageContentTypeToExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

var videoContentTypeToExt = map[string]string{
	"video/mp4":                     ".mp4",
	"video/quicktime":               ".mov",
	"video/webm":                    ".webm",
	"video/x-msvideo":               ".avi",
	"video/x-matroska":              ".mkv",
	"video/3gpp":                    ".3gp",
	"application/vnd.apple.mpegurl": ".m3u8",
}

// MediaFetcher is the client-side surface the downloader needs.
type MediaFetcher interface {
	Download(mediaURL string) (*http.Response, error)
}

// Downloader saves the best working candidate of each pin.
type Downloader struct {
	client  MediaFetcher
	storage *storage.Manager
	logger  logger.Logger
}

// New creates a Downloader writing into the storage manager's directory.
func New(client MediaFetcher, store *storage.Manager, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{client: client, storage: store, logger: log}
}

// Download attempts each candidate in order and returns the saved path and
// the candidate that succeeded. When every candidate fails, the error
// carries the last underlying failure text.
func (d *Downloader) Download(candidates []pinterest.MediaCandidate, filenamePrefix string) (string, *pinterest.MediaCandidate, error) {
	var lastErr error

	for _, candidate := range candidates {
		savedPath, err := d.downloadOne(candidate, filenamePrefix)
		if err != nil {
			lastErr = err
			d.logger.DebugWithFields("candidate download failed", map[string]interface{}{
				"url":   candidate.URL,
				"error": err.Error(),
			})
			continue
		}
		return savedPath, &candidate, nil
	}

	if lastErr != nil {
		return "", nil, errors.Newf(errors.ErrorTypeDownload, "%v", lastErr)
	}
	return "", nil, errors.New(errors.ErrorTypeDownload, "no downloadable media candidate found")
}

// downloadOne streams a single candidate to disk.
func (d *Downloader) downloadOne(candidate pinterest.MediaCandidate, prefix string) (string, error) {
	resp, err := d.client.Download(candidate.URL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	filename := buildFilename(candidate.URL, resp.Header.Get("Content-Type"), prefix)
	savedPath, err := d.storage.Save(resp.Body, filename)
	if err != nil {
		return "", err
	}

	d.logger.InfoWithFields("media saved", map[string]interface{}{
		"url":  candidate.URL,
		"path": savedPath,
	})
	return savedPath, nil
}

// buildFilename derives a safe filename from the media URL, the declared
// content type, and an optional per-item prefix.
func buildFilename(mediaURL, contentType, prefix string) string {
	basename := decodedBaseName(mediaURL)

	stem := strings.TrimSuffix(basename, path.Ext(basename))
	if stem == "" {
		stem = "pinterest_media"
	}
	stem = storage.SanitizeStem(stem)
	if prefix != "" {
		stem = storage.SanitizeStem(prefix + "_" + stem)
	}

	return stem + detectExtension(mediaURL, basename, contentType)
}

// decodedBaseName returns the percent-decoded last path element of a URL.
func decodedBaseName(mediaURL string) string {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	if decoded, err := url.PathUnescape(base); err == nil {
		return decoded
	}
	return base
}

// detectExtension resolves the extension by source suffix, then declared
// content type, then a default keyed on the inferred media type.
func detectExtension(mediaURL, basename, contentType string) string {
	if suffix := strings.ToLower(path.Ext(basename)); suffix != "" {
		if suffix == ".jpeg" {
			return ".jpg"
		}
		return suffix
	}

	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := imageContentTypeToExt[ct]; ok {
		return ext
	}
	if ext, ok := videoContentTypeToExt[ct]; ok {
		return ext
	}

	if pinterest.InferMediaTypeFromURL(mediaURL) == pinterest.MediaTypeVideo {
		return ".mp4"
	}
	return ".jpg"
}
