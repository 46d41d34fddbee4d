package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// writeChunkSize is the buffer size for streaming media to disk.
const writeChunkSize = 64 * 1024

const maxStemLength = 96

var invalidFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Manager owns one output directory. Saved files are never overwritten;
// colliding names get an incrementing numeric suffix instead. A write that
// fails mid-stream may leave a truncated file behind, which is acceptable
// because unique paths protect prior successful downloads.
type Manager struct {
	outputDir string
}

// NewManager creates the output directory (parents included) if needed.
func NewManager(outputDir string) (*Manager, error) {
	expanded, err := expandPath(outputDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(expanded, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: expanded}, nil
}

// OutputDir returns the resolved output directory path.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Save streams the reader into a uniquely named file and returns the path
// actually written.
func (m *Manager) Save(r io.Reader, filename string) (string, error) {
	path := m.UniquePath(filename)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	buf := make([]byte, writeChunkSize)
	_, err = io.CopyBuffer(out, r, buf)
	closeErr := out.Close()

	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	return path, nil
}

// UniquePath returns the first non-existing path for filename inside the
// output directory, appending _1, _2, ... before the extension on
// collision.
func (m *Manager) UniquePath(filename string) string {
	path := filepath.Join(m.outputDir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for counter := 1; ; counter++ {
		candidate := filepath.Join(m.outputDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// SanitizeStem reduces a name to filesystem-safe characters and caps its
// length. An empty result falls back to "media".
func SanitizeStem(name string) string {
	cleaned := invalidFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	cleaned = strings.Trim(cleaned, "._ ")
	if cleaned == "" {
		cleaned = "media"
	}
	if len(cleaned) > maxStemLength {
		cleaned = cleaned[:maxStemLength]
	}
	return cleaned
}

// expandPath resolves a leading ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	return abs, nil
}
