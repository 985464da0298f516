package content

import (
	"context"
	"fmt"

	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/engagement"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
	"gorm.io/gorm"
)

// CommentView is a comment with its author summary
type CommentView struct {
	models.Comment
	Author Author `json:"author"`
}

// ListComments lists comments on one item. Anonymous viewers see none; authors in a
// block relationship with the viewer are left out.
func (s *Store) ListComments(ctx context.Context, contentType models.ContentType, contentID uint, viewerID string, limit, offset int) ([]CommentView, int64, error) {
	ownerID, err := s.contentOwner(ctx, contentType, contentID)
	if err != nil {
		return nil, 0, err
	}
	if viewerID == "" {
		return []CommentView{}, 0, nil
	}

	visible, err := s.filter.CanSee(ctx, viewerID, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if !visible {
		return nil, 0, apperrors.NotFound(string(contentType))
	}

	excluded, err := s.filter.ExcludedOwners(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}
	query := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Scopes(visibility.ExcludeOwners("user_id", excluded))

	return s.findComments(query, limit, offset)
}

// ListAllComments lists every comment across all content, newest first
func (s *Store) ListAllComments(ctx context.Context, viewerID string, limit, offset int) ([]CommentView, int64, error) {
	excluded, err := s.filter.ExcludedOwners(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}
	query := s.db.WithContext(ctx).Model(&models.Comment{}).
		Scopes(visibility.ExcludeOwners("user_id", excluded))
	return s.findComments(query, limit, offset)
}

// GetComment returns one comment unless its author is block-related to the viewer
func (s *Store) GetComment(ctx context.Context, commentID uint, viewerID string) (*CommentView, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Preload("User").First(&comment, commentID).Error
	if database.IsNotFound(err) {
		return nil, apperrors.NotFound("comment")
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}

	visible, err := s.filter.CanSee(ctx, viewerID, comment.UserID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NotFound("comment")
	}
	return &CommentView{Comment: comment, Author: authorOf(comment.User)}, nil
}

func (s *Store) findComments(query *gorm.DB, limit, offset int) ([]CommentView, int64, error) {
	var comments []models.Comment
	total, err := countAndFind(query, "User", &comments, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = CommentView{Comment: c, Author: authorOf(c.User)}
	}
	return views, total, nil
}

// contentOwner returns the owner of a live item, or NotFound
func (s *Store) contentOwner(ctx context.Context, contentType models.ContentType, contentID uint) (string, error) {
	if !contentType.Valid() {
		return "", apperrors.ValidationError("content_type", "unknown content type")
	}
	var owners []string
	err := s.db.WithContext(ctx).Table(contentType.Table()).
		Where("id = ? AND deleted_at IS NULL", contentID).
		Limit(1).
		Pluck(contentType.OwnerColumn(), &owners).Error
	if err != nil {
		return "", fmt.Errorf("get %s owner: %w", contentType, err)
	}
	if len(owners) == 0 {
		return "", apperrors.NotFound(string(contentType))
	}
	return owners[0], nil
}

// DeleteUserContent removes every post and video owned by userID with their engagement
func (s *Store) DeleteUserContent(ctx context.Context, userID string) (int, error) {
	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ct := range []models.ContentType{models.ContentPost, models.ContentVideo} {
			var ids []uint
			err := tx.Table(ct.Table()).
				Where(ct.OwnerColumn()+" = ?", userID).
				Pluck("id", &ids).Error
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := engagement.DeleteContentEngagement(tx, ct, id); err != nil {
					return err
				}
			}
			if len(ids) == 0 {
				continue
			}
			var model any = &models.Post{}
			if ct == models.ContentVideo {
				model = &models.Video{}
			}
			if err := tx.Unscoped().Where("id IN ?", ids).Delete(model).Error; err != nil {
				return err
			}
			removed += len(ids)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete user content: %w", err)
	}
	return removed, nil
}
