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
	"gorm.io/gorm"
)

// PostView is a post as returned to a viewer
type PostView struct {
	models.Post
	Author Author `json:"author"`
	Engagement
}

// PostUpdate holds the editable post fields; nil fields are left unchanged
type PostUpdate struct {
	Content *string
	Image   *string
}

// CreatePost stores a new image post for userID
func (s *Store) CreatePost(ctx context.Context, userID, imageURL, text string) (*models.Post, error) {
	if imageURL == "" {
		return nil, apperrors.ValidationError("image", "an image is required")
	}
	text = strings.TrimSpace(text)
	if len([]rune(text)) > maxPostContentLength {
		return nil, apperrors.ValidationError("content", fmt.Sprintf("content must be at most %d characters", maxPostContentLength))
	}

	post := &models.Post{UserID: userID, Image: imageURL, Content: text}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	metrics.Get().App.ContentCreated.WithLabelValues(string(models.ContentPost)).Inc()
	logger.Log.Info("Post created", logger.WithUserID(userID), logger.WithContent(string(models.ContentPost), post.ID))
	return post, nil
}

// GetPost returns one post. Viewers in a block relationship with the owner get NotFound.
func (s *Store) GetPost(ctx context.Context, postID uint, viewerID string) (*PostView, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("User").First(&post, postID).Error
	if database.IsNotFound(err) {
		return nil, apperrors.NotFound("post")
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	visible, err := s.filter.CanSee(ctx, viewerID, post.UserID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NotFound("post")
	}

	views, err := s.postViews(ctx, []models.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdatePost edits a post owned by userID
func (s *Store) UpdatePost(ctx context.Context, postID uint, userID string, update PostUpdate) (*models.Post, error) {
	post, err := s.ownedPost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if update.Content != nil {
		text := strings.TrimSpace(*update.Content)
		if len([]rune(text)) > maxPostContentLength {
			return nil, apperrors.ValidationError("content", fmt.Sprintf("content must be at most %d characters", maxPostContentLength))
		}
		changes["content"] = text
	}
	if update.Image != nil && *update.Image != "" {
		changes["image"] = *update.Image
	}
	if len(changes) == 0 {
		return post, nil
	}

	if err := s.db.WithContext(ctx).Model(post).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if err := s.db.WithContext(ctx).First(post, post.ID).Error; err != nil {
		return nil, fmt.Errorf("reload post: %w", err)
	}
	return post, nil
}

// DeletePost soft-deletes a post owned by userID together with all its engagement
func (s *Store) DeletePost(ctx context.Context, postID uint, userID string) error {
	post, err := s.ownedPost(ctx, postID, userID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := engagement.DeleteContentEngagement(tx, models.ContentPost, post.ID); err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	metrics.Get().App.ContentDeleted.WithLabelValues(string(models.ContentPost)).Inc()
	return nil
}

func (s *Store) ownedPost(ctx context.Context, postID uint, userID string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).First(&post, postID).Error
	if database.IsNotFound(err) {
		return nil, apperrors.NotFound("post")
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if post.UserID != userID {
		return nil, apperrors.Forbidden("you can only change your own posts")
	}
	return &post, nil
}

// ListPosts is the global post feed as seen by viewerID
func (s *Store) ListPosts(ctx context.Context, viewerID string, limit, offset int) ([]PostView, int64, error) {
	return s.listPosts(ctx, "", viewerID, limit, offset)
}

// ListUserPosts lists posts owned by ownerID as seen by viewerID
func (s *Store) ListUserPosts(ctx context.Context, ownerID, viewerID string, limit, offset int) ([]PostView, int64, error) {
	return s.listPosts(ctx, ownerID, viewerID, limit, offset)
}

func (s *Store) listPosts(ctx context.Context, ownerID, viewerID string, limit, offset int) ([]PostView, int64, error) {
	scope, err := s.listScope(ctx, viewerID, models.ContentPost)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(scope)
	if ownerID != "" {
		query = query.Where("posts.user_id = ?", ownerID)
	}

	var posts []models.Post
	total, err := countAndFind(query, "User", &posts, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	views, err := s.postViews(ctx, posts, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// CountUserPosts counts live posts owned by userID
func (s *Store) CountUserPosts(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (s *Store) postViews(ctx context.Context, posts []models.Post, viewerID string) ([]PostView, error) {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	eng, err := s.engagementFor(ctx, models.ContentPost, ids, viewerID)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = PostView{Post: p, Author: authorOf(p.User), Engagement: eng[p.ID]}
	}
	return views, nil
}
