package downloader

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pindl/pkg/errors"
	"pindl/pkg/pinterest"
	"pindl/pkg/storage"
)

// fakeFetcher serves canned responses keyed by URL and records the order
// of download attempts.
type fakeFetcher struct {
	responses map[string]fakeResponse
	attempts  []string
}

type fakeResponse struct {
	body        string
	contentType string
	err         error
}

func (f *fakeFetcher) Download(mediaURL string) (*http.Response, error) {
	f.attempts = append(f.attempts, mediaURL)

	canned, ok := f.responses[mediaURL]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "resource not found")
	}
	if canned.err != nil {
		return nil, canned.err
	}

	header := make(http.Header)
	if canned.contentType != "" {
		header.Set("Content-Type", canned.contentType)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(canned.body)),
	}, nil
}

func newTestDownloader(t *testing.T, fetcher *fakeFetcher) *Downloader {
	t.Helper()
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	return New(fetcher, store, nil)
}

func TestDownloadFirstCandidateWins(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"https://i.pinimg.com/originals/aa/bb/cc.jpg": {body: "original bytes", contentType: "image/jpeg"},
		"https://i.pinimg.com/736x/aa/bb/cc.jpg":      {body: "resized bytes", contentType: "image/jpeg"},
	}}
	d := newTestDownloader(t, fetcher)

	candidates := []pinterest.MediaCandidate{
		{URL: "https://i.pinimg.com/originals/aa/bb/cc.jpg", Type: pinterest.MediaTypeImage, Score: 10300},
		{URL: "https://i.pinimg.com/736x/aa/bb/cc.jpg", Type: pinterest.MediaTypeImage, Score: 2772},
	}

	path, winner, err := d.Download(candidates, "pin_001")

	require.NoError(t, err)
	assert.Equal(t, "https://i.pinimg.com/originals/aa/bb/cc.jpg", winner.URL)
	assert.Equal(t, []string{"https://i.pinimg.com/originals/aa/bb/cc.jpg"}, fetcher.attempts,
		"lower-ranked candidates stay untouched once one succeeds")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original bytes", string(data))
	assert.Equal(t, "pin_001_cc.jpg", filepath.Base(path))
}

func TestDownloadFallsBackInOrder(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"https://i.pinimg.com/736x/aa/bb/cc.jpg": {body: "resized bytes", contentType: "image/jpeg"},
	}}
	d := newTestDownloader(t, fetcher)

	candidates := []pinterest.MediaCandidate{
		{URL: "https://i.pinimg.com/originals/aa/bb/cc.jpg", Type: pinterest.MediaTypeImage},
		{URL: "https://i.pinimg.com/736x/aa/bb/cc.jpg", Type: pinterest.MediaTypeImage},
	}

	_, winner, err := d.Download(candidates, "pin_002")

	require.NoError(t, err)
	assert.Equal(t, "https://i.pinimg.com/736x/aa/bb/cc.jpg", winner.URL)
	assert.Equal(t, []string{
		"https://i.pinimg.com/originals/aa/bb/cc.jpg",
		"https://i.pinimg.com/736x/aa/bb/cc.jpg",
	}, fetcher.attempts, "each candidate gets exactly one attempt, in rank order")
}

func TestDownloadAllCandidatesFail(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{}}
	d := newTestDownloader(t, fetcher)

	candidates := []pinterest.MediaCandidate{
		{URL: "https://i.pinimg.com/originals/aa/bb/cc.jpg", Type: pinterest.MediaTypeImage},
		{URL: "https://i.pinimg.com/736x/aa/bb/cc.jpg", Type: pinterest.MediaTypeImage},
	}

	_, _, err := d.Download(candidates, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource not found", "the last failure is reported")
	assert.Len(t, fetcher.attempts, 2)
}

func TestDownloadEmptyCandidates(t *testing.T) {
	d := newTestDownloader(t, &fakeFetcher{})

	_, _, err := d.Download(nil, "pin_001")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no downloadable media candidate found")
}

func TestBuildFilename(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		prefix      string
		expected    string
	}{
		{
			"basename with prefix",
			"https://i.pinimg.com/originals/aa/bb/cc.jpg", "image/jpeg", "pin_007",
			"pin_007_cc.jpg",
		},
		{
			"jpeg suffix normalized",
			"https://i.pinimg.com/originals/aa/bb/cc.jpeg", "image/jpeg", "",
			"cc.jpg",
		},
		{
			"percent-encoded basename decoded",
			"https://i.pinimg.com/originals/aa/bb/my%20photo.png", "image/png", "",
			"my_photo.png",
		},
		{
			"extension from content type",
			"https://v1.pinimg.com/videos/mc/720p/stream", "video/mp4", "",
			"stream.mp4",
		},
		{
			"content type parameters ignored",
			"https://example.com/media/photo", "image/webp; charset=binary", "",
			"photo.webp",
		},
		{
			"video default without any hints",
			"https://v1.pinimg.com/videos/mc/720p/stream", "", "",
			"stream.mp4",
		},
		{
			"image default without any hints",
			"https://example.com/media/photo", "", "",
			"photo.jpg",
		},
		{
			"empty path falls back to generic stem",
			"https://example.com/", "image/jpeg", "pin_003",
			"pin_003_pinterest_media.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildFilename(tt.url, tt.contentType, tt.prefix))
		})
	}
}

func TestDetectExtension(t *testing.T) {
	assert.Equal(t, ".jpg", detectExtension("https://x/cc.jpeg", "cc.jpeg", ""))
	assert.Equal(t, ".png", detectExtension("https://x/cc.png", "cc.png", "image/jpeg"),
		"the source suffix beats the declared content type")
	assert.Equal(t, ".m3u8", detectExtension("https://x/stream", "stream", "application/vnd.apple.mpegURL"))
}
