// Package storage keeps uploaded media (post images, videos, thumbnails, avatars)
// and hands back public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the folder an object is filed under
type Kind string

const (
	KindImage     Kind = "images"
	KindVideo     Kind = "videos"
	KindThumbnail Kind = "thumbnails"
	KindAvatar    Kind = "avatars"
)

// UploadResult contains the result of an upload
type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// MediaStore accepts a blob and returns where it can be fetched from
type MediaStore interface {
	Put(ctx context.Context, kind Kind, ownerID, filename string, body io.Reader, size int64) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// Ensure both stores implement MediaStore
var (
	_ MediaStore = (*S3Store)(nil)
	_ MediaStore = (*LocalStore)(nil)
)

// objectKey files an upload as {kind}/{year}/{month}/{ownerID}/{uuid}{ext}
func objectKey(kind Kind, ownerID, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" && kind == KindThumbnail {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s/%d/%02d/%s/%s%s", kind, now.Year(), now.Month(), ownerID, uuid.New().String(), ext)
}

func publicURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + key
}

// contentType returns the MIME type for a media file extension
func contentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
