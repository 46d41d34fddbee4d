package pinterest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMediaCDNHost(t *testing.T) {
	assert.True(t, IsMediaCDNHost("i.pinimg.com"))
	assert.True(t, IsMediaCDNHost("I.PINIMG.COM"))
	assert.True(t, IsMediaCDNHost("v1.pinimg.com"))
	assert.False(t, IsMediaCDNHost("pinimg.com.evil.com"))
	assert.False(t, IsMediaCDNHost("www.pinterest.com"))
	assert.False(t, IsMediaCDNHost(""))
}

func TestInferMediaTypeFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected MediaType
	}{
		{"originals jpg", "https://i.pinimg.com/originals/aa/bb/cc.jpg", MediaTypeImage},
		{"resized webp", "https://i.pinimg.com/736x/aa/bb/cc.webp", MediaTypeImage},
		{"width-height segment", "https://i.pinimg.com/236x415/aa/bb/cc.png", MediaTypeImage},
		{"cdn size segment without extension", "https://i.pinimg.com/736x/aa/bb/cc", MediaTypeImage},
		{"video mp4", "https://v1.pinimg.com/videos/mc/720p/ab/cd.mp4", MediaTypeVideo},
		{"hls manifest in videos path", "https://v1.pinimg.com/videos/iht/hls/ab.m3u8", MediaTypeVideo},
		{"foreign host image", "https://example.com/photo.jpeg", MediaTypeImage},
		{"foreign host video", "https://example.com/clip.webm", MediaTypeVideo},
		{"stylesheet", "https://i.pinimg.com/static/main.css", MediaTypeUnknown},
		{"webfont", "https://i.pinimg.com/fonts/body.woff2", MediaTypeUnknown},
		{"cdn unknown segment", "https://i.pinimg.com/user/aa/bb", MediaTypeUnknown},
		{"plain page", "https://www.pinterest.com/pin/123/", MediaTypeUnknown},
		{"empty path on cdn", "https://i.pinimg.com/", MediaTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferMediaTypeFromURL(tt.url))
		})
	}
}

func TestInferMediaTypeFromPath(t *testing.T) {
	assert.Equal(t, MediaTypeImage, InferMediaTypeFromPath("downloads/pin_001_cc.jpg"))
	assert.Equal(t, MediaTypeVideo, InferMediaTypeFromPath("downloads/pin_002_cd.mp4"))
	assert.Equal(t, MediaTypeUnknown, InferMediaTypeFromPath("downloads/readme.txt"))
	assert.Equal(t, MediaTypeUnknown, InferMediaTypeFromPath("downloads/noext"))
}
