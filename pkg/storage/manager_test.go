package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")

	m, err := NewManager(dir)

	require.NoError(t, err)
	info, err := os.Stat(m.OutputDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveWritesFile(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := m.Save(strings.NewReader("media bytes"), "pin_001_cc.jpg")

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "media bytes", string(data))
}

func TestSaveNeverOverwrites(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	first, err := m.Save(strings.NewReader("first"), "cc.jpg")
	require.NoError(t, err)
	second, err := m.Save(strings.NewReader("second"), "cc.jpg")
	require.NoError(t, err)
	third, err := m.Save(strings.NewReader("third"), "cc.jpg")
	require.NoError(t, err)

	assert.Equal(t, "cc.jpg", filepath.Base(first))
	assert.Equal(t, "cc_1.jpg", filepath.Base(second))
	assert.Equal(t, "cc_2.jpg", filepath.Base(third))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "the original file is untouched")
}

func TestUniquePathKeepsExtension(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(m.OutputDir(), "clip.mp4"), []byte("x"), 0644))

	path := m.UniquePath("clip.mp4")
	assert.Equal(t, "clip_1.mp4", filepath.Base(path))
}

func TestSanitizeStem(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name unchanged", "pin_001_cc", "pin_001_cc"},
		{"spaces and slashes replaced", "a b/c\\d", "a_b_c_d"},
		{"unicode replaced", "фото☺", "media"},
		{"leading dots trimmed", "..hidden", "hidden"},
		{"empty falls back", "", "media"},
		{"whitespace falls back", "   ", "media"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeStem(tt.input))
		})
	}
}

func TestSanitizeStemCapsLength(t *testing.T) {
	long := strings.Repeat("a", 500)
	assert.Len(t, SanitizeStem(long), maxStemLength)
}
