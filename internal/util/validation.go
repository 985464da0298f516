package util

import (
	"path/filepath"
	"slices"
	"strings"
)

var (
	videoExtensions = []string{".mp4", ".mov", ".avi"}
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

// IsValidVideoFile checks if a filename has an accepted video extension
func IsValidVideoFile(filename string) bool {
	return slices.Contains(videoExtensions, strings.ToLower(filepath.Ext(filename)))
}

// IsValidImageFile checks if a filename has an accepted image extension
func IsValidImageFile(filename string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(filename)))
}
