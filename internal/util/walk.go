package util

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// ImagePattern matches the image formats the indexer can decode
const ImagePattern = "**/*.{jpg,jpeg,png,gif,webp,JPG,JPEG,PNG,GIF,WEBP}"

// FindImageFiles returns the paths under root matching pattern, sorted.
// Paths matching any of the exclude patterns are skipped.
func FindImageFiles(root, pattern string, exclude []string, logger *zap.Logger) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if pattern == "" {
		pattern = ImagePattern
	}
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		if excluded(match, exclude) {
			logger.Debug("Skipping excluded file", zap.String("path", match))
			continue
		}
		paths = append(paths, filepath.Join(root, filepath.FromSlash(match)))
	}
	sort.Strings(paths)
	return paths, nil
}

// excluded expects patterns already checked with doublestar.ValidatePattern
func excluded(path string, patterns []string) bool {
	for _, p := range patterns {
		if doublestar.MatchUnvalidated(p, path) {
			return true
		}
	}
	return false
}
