package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/storage"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"go.uber.org/zap"
)

// VideoUpload is a validated, stored clip ready to become a Video row
type VideoUpload struct {
	VideoURL     string
	ThumbnailURL string
	DurationMS   int64
	SizeBytes    int64
}

// Pipeline validates uploads, runs the processor and stores the results
type Pipeline struct {
	processor VideoProcessor
	store     storage.MediaStore
	limits    Limits
}

// NewPipeline creates a media pipeline
func NewPipeline(processor VideoProcessor, store storage.MediaStore, limits Limits) *Pipeline {
	return &Pipeline{processor: processor, store: store, limits: limits}
}

// Limits returns the upload limits in force
func (p *Pipeline) Limits() Limits {
	return p.limits
}

// ProcessVideo checks the clip at path (format, size, at most MaxVideoLength long),
// extracts its thumbnail and stores both
func (p *Pipeline) ProcessVideo(ctx context.Context, ownerID, filename, path string) (_ *VideoUpload, err error) {
	defer func() { recordUpload("video", err) }()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}
	if err := p.limits.ValidateVideoFile(filename, stat.Size()); err != nil {
		return nil, err
	}

	ctx, span := telemetry.GetBusinessEvents().TraceMedia(ctx, "process_video", "video", stat.Size())
	defer func() { telemetry.End(span, err) }()

	start := time.Now()
	info, err := p.processor.Probe(ctx, path)
	observeStage("probe", start)
	if err != nil {
		logger.WarnWithFields("Video probe failed", err, logger.WithUserID(ownerID), zap.String("filename", filename))
		return nil, apperrors.ValidationError("video", "could not read the video file")
	}
	if err := p.limits.ValidateDuration(info.Duration); err != nil {
		return nil, err
	}

	thumbnailURL := ""
	start = time.Now()
	thumb, thumbErr := p.processor.Thumbnail(ctx, path, ThumbnailOffset(info.Duration))
	observeStage("thumbnail", start)
	if thumbErr != nil {
		logger.WarnWithFields("Thumbnail extraction failed", thumbErr, logger.WithUserID(ownerID))
	} else {
		res, err := p.store.Put(ctx, storage.KindThumbnail, ownerID, "thumbnail.jpg", bytes.NewReader(thumb), int64(len(thumb)))
		if err != nil {
			return nil, apperrors.Internal("failed to store thumbnail", err)
		}
		thumbnailURL = res.URL
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	start = time.Now()
	res, err := p.store.Put(ctx, storage.KindVideo, ownerID, filepath.Base(filename), f, stat.Size())
	observeStage("upload", start)
	if err != nil {
		return nil, apperrors.Internal("failed to store video", err)
	}

	return &VideoUpload{
		VideoURL:     res.URL,
		ThumbnailURL: thumbnailURL,
		DurationMS:   info.Duration.Milliseconds(),
		SizeBytes:    stat.Size(),
	}, nil
}

// StoreImage validates and stores a post image or avatar. field names the form field in errors.
func (p *Pipeline) StoreImage(ctx context.Context, kind storage.Kind, field, ownerID, filename string, body io.Reader, size int64) (_ string, err error) {
	defer func() { recordUpload(string(kind), err) }()

	if err := p.limits.ValidateImageFile(field, filename, size); err != nil {
		return "", err
	}
	res, err := p.store.Put(ctx, kind, ownerID, filepath.Base(filename), body, size)
	if err != nil {
		return "", apperrors.Internal("failed to store image", err)
	}
	return res.URL, nil
}

func observeStage(stage string, start time.Time) {
	metrics.Get().App.MediaProcessingDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func recordUpload(kind string, err error) {
	status := "stored"
	switch {
	case apperrors.Is(err, apperrors.ErrValidation):
		status = "rejected"
	case err != nil:
		status = "failed"
	}
	metrics.Get().App.MediaUploadsTotal.WithLabelValues(kind, status).Inc()
}
