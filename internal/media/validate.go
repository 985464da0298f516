package media

import (
	"fmt"
	"time"

	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/util"
)

// Limits bounds accepted uploads
type Limits struct {
	MaxVideoBytes  int64
	MaxVideoLength time.Duration
	MaxImageBytes  int64
}

// DefaultLimits are 200 MB and 15 seconds for videos, 10 MB for images
var DefaultLimits = Limits{
	MaxVideoBytes:  200 << 20,
	MaxVideoLength: 15 * time.Second,
	MaxImageBytes:  10 << 20,
}

const thumbnailOffset = time.Second

// ValidateVideoFile checks the extension and size of a video upload
func (l Limits) ValidateVideoFile(filename string, size int64) error {
	if !util.IsValidVideoFile(filename) {
		return apperrors.ValidationError("video", "video must be an .mp4, .mov or .avi file")
	}
	if size <= 0 {
		return apperrors.ValidationError("video", "video file is empty")
	}
	if size > l.MaxVideoBytes {
		return apperrors.ValidationError("video", fmt.Sprintf("video must be at most %d MB", l.MaxVideoBytes>>20))
	}
	return nil
}

// ValidateImageFile checks the extension and size of an image upload
func (l Limits) ValidateImageFile(field, filename string, size int64) error {
	if !util.IsValidImageFile(filename) {
		return apperrors.ValidationError(field, "image must be a .jpg, .jpeg, .png, .gif or .webp file")
	}
	if size <= 0 {
		return apperrors.ValidationError(field, "image file is empty")
	}
	if size > l.MaxImageBytes {
		return apperrors.ValidationError(field, fmt.Sprintf("image must be at most %d MB", l.MaxImageBytes>>20))
	}
	return nil
}

// ValidateDuration rejects clips longer than MaxVideoLength
func (l Limits) ValidateDuration(d time.Duration) error {
	if d > l.MaxVideoLength {
		return apperrors.ValidationError("video",
			fmt.Sprintf("video duration exceeds the maximum allowed duration of %d seconds", int(l.MaxVideoLength.Seconds())))
	}
	return nil
}

// ThumbnailOffset is one second in, or the first frame for shorter clips
func ThumbnailOffset(d time.Duration) time.Duration {
	if d < thumbnailOffset {
		return 0
	}
	return thumbnailOffset
}
