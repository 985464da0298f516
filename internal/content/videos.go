package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/engagement"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxVideoTitleLength = 200

// VideoView is a video as returned to a viewer
type VideoView struct {
	models.Video
	Author Author `json:"author"`
	Engagement
}

// NewVideo describes an uploaded and processed clip
type NewVideo struct {
	AuthorID     string
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	DurationMS   int64
	SizeBytes    int64
}

// VideoUpdate holds the editable video fields; nil fields are left unchanged
type VideoUpdate struct {
	Title       *string
	Description *string
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperrors.ValidationError("title", "a title is required")
	}
	if len([]rune(title)) > maxVideoTitleLength {
		return "", apperrors.ValidationError("title", fmt.Sprintf("title must be at most %d characters", maxVideoTitleLength))
	}
	return title, nil
}

// CreateVideo stores a processed video
func (s *Store) CreateVideo(ctx context.Context, in NewVideo) (*models.Video, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.VideoURL == "" {
		return nil, apperrors.ValidationError("video", "a video file is required")
	}

	video := &models.Video{
		AuthorID:     in.AuthorID,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		VideoURL:     in.VideoURL,
		ThumbnailURL: in.ThumbnailURL,
		DurationMS:   in.DurationMS,
		SizeBytes:    in.SizeBytes,
	}
	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	metrics.Get().App.ContentCreated.WithLabelValues(string(models.ContentVideo)).Inc()
	logger.Log.Info("Video created",
		logger.WithUserID(in.AuthorID),
		logger.WithContent(string(models.ContentVideo), video.ID),
		zap.Int64("duration_ms", in.DurationMS),
	)
	return video, nil
}

// GetVideo returns one video. Viewers in a block relationship with the author get NotFound.
func (s *Store) GetVideo(ctx context.Context, videoID uint, viewerID string) (*VideoView, error) {
	var video models.Video
	err := s.db.WithContext(ctx).Preload("Author").First(&video, videoID).Error
	if database.IsNotFound(err) {
		return nil, apperrors.NotFound("video")
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	visible, err := s.filter.CanSee(ctx, viewerID, video.AuthorID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NotFound("video")
	}

	views, err := s.videoViews(ctx, []models.Video{video}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdateVideo edits the metadata of a video owned by userID
func (s *Store) UpdateVideo(ctx context.Context, videoID uint, userID string, update VideoUpdate) (*models.Video, error) {
	video, err := s.ownedVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if update.Title != nil {
		title, err := validateTitle(*update.Title)
		if err != nil {
			return nil, err
		}
		changes["title"] = title
	}
	if update.Description != nil {
		changes["description"] = strings.TrimSpace(*update.Description)
	}
	if len(changes) == 0 {
		return video, nil
	}

	if err := s.db.WithContext(ctx).Model(video).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}
	if err := s.db.WithContext(ctx).First(video, video.ID).Error; err != nil {
		return nil, fmt.Errorf("reload video: %w", err)
	}
	return video, nil
}

// DeleteVideo soft-deletes a video owned by userID together with all its engagement
func (s *Store) DeleteVideo(ctx context.Context, videoID uint, userID string) error {
	video, err := s.ownedVideo(ctx, videoID, userID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := engagement.DeleteContentEngagement(tx, models.ContentVideo, video.ID); err != nil {
			return err
		}
		return tx.Delete(video).Error
	})
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	metrics.Get().App.ContentDeleted.WithLabelValues(string(models.ContentVideo)).Inc()
	return nil
}

func (s *Store) ownedVideo(ctx context.Context, videoID uint, userID string) (*models.Video, error) {
	var video models.Video
	err := s.db.WithContext(ctx).First(&video, videoID).Error
	if database.IsNotFound(err) {
		return nil, apperrors.NotFound("video")
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	if video.AuthorID != userID {
		return nil, apperrors.Forbidden("you can only change your own videos")
	}
	return &video, nil
}

// ListVideos is the global video feed as seen by viewerID
func (s *Store) ListVideos(ctx context.Context, viewerID string, limit, offset int) ([]VideoView, int64, error) {
	return s.listVideos(ctx, "", viewerID, limit, offset)
}

// ListUserVideos lists videos authored by ownerID as seen by viewerID
func (s *Store) ListUserVideos(ctx context.Context, ownerID, viewerID string, limit, offset int) ([]VideoView, int64, error) {
	return s.listVideos(ctx, ownerID, viewerID, limit, offset)
}

func (s *Store) listVideos(ctx context.Context, ownerID, viewerID string, limit, offset int) ([]VideoView, int64, error) {
	scope, err := s.listScope(ctx, viewerID, models.ContentVideo)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Video{}).Scopes(scope)
	if ownerID != "" {
		query = query.Where("videos.author_id = ?", ownerID)
	}

	var videos []models.Video
	total, err := countAndFind(query, "Author", &videos, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}

	views, err := s.videoViews(ctx, videos, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// CountUserVideos counts live videos authored by userID
func (s *Store) CountUserVideos(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Video{}).Where("author_id = ?", userID).Count(&n).Error
	return n, err
}

func (s *Store) videoViews(ctx context.Context, videos []models.Video, viewerID string) ([]VideoView, error) {
	ids := make([]uint, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	eng, err := s.engagementFor(ctx, models.ContentVideo, ids, viewerID)
	if err != nil {
		return nil, err
	}

	views := make([]VideoView, len(videos))
	for i, v := range videos {
		views[i] = VideoView{Video: v, Author: authorOf(v.Author), Engagement: eng[v.ID]}
	}
	return views, nil
}
