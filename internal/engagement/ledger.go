// Package engagement records likes, comments and per-viewer hides, and keeps the
// denormalized like/comment counters equal to the number of live rows.
package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/vlogbook/backend/internal/database"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxToggleAttempts = 5
	maxCommentLength  = 1000
)

const (
	recountLikesSQL = `INSERT INTO like_counters (content_type, content_id, count, updated_at)
VALUES (?, ?, (SELECT COUNT(*) FROM likes WHERE content_type = ? AND content_id = ?), ?)
ON CONFLICT (content_type, content_id) DO UPDATE SET count = excluded.count, updated_at = excluded.updated_at`

	recountCommentsSQL = `INSERT INTO comment_counters (content_type, content_id, count, updated_at)
VALUES (?, ?, (SELECT COUNT(*) FROM comments WHERE content_type = ? AND content_id = ? AND deleted_at IS NULL), ?)
ON CONFLICT (content_type, content_id) DO UPDATE SET count = excluded.count, updated_at = excluded.updated_at`
)

// Counts is the engagement summary of one content item
type Counts struct {
	Likes    int64 `json:"like_count"`
	Comments int64 `json:"comment_count"`
}

// Ledger owns every engagement write
type Ledger struct {
	db     *gorm.DB
	filter *visibility.Filter
}

// NewLedger creates a ledger. filter is used to hide blocked users from liker lists.
func NewLedger(db *gorm.DB, filter *visibility.Filter) *Ledger {
	return &Ledger{db: db, filter: filter}
}

// ToggleLike flips the user's like on an item and returns the new state and like count.
// Concurrent toggles by the same user serialize on the unique index: a lost insert
// race means the other request liked it, so this one unlikes.
func (l *Ledger) ToggleLike(ctx context.Context, contentType models.ContentType, contentID uint, userID string) (bool, int64, error) {
	if err := l.requireContent(ctx, contentType, contentID); err != nil {
		return false, 0, err
	}

	liked := false
	done := false
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		result := l.db.WithContext(ctx).
			Where("content_type = ? AND content_id = ? AND user_id = ?", contentType, contentID, userID).
			Delete(&models.Like{})
		if result.Error != nil {
			return false, 0, fmt.Errorf("delete like: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			done = true
			break
		}

		err := l.db.WithContext(ctx).Create(&models.Like{
			ContentType: contentType,
			ContentID:   contentID,
			UserID:      userID,
		}).Error
		if err == nil {
			liked = true
			done = true
			break
		}
		if !database.IsUniqueViolation(err) {
			return false, 0, fmt.Errorf("insert like: %w", err)
		}
		metrics.Get().App.LikeToggleRetries.Inc()
	}
	if !done {
		return false, 0, apperrors.Conflict("like is being changed concurrently, try again")
	}

	count, err := l.RecountLikes(ctx, contentType, contentID)
	if err != nil {
		return liked, 0, err
	}

	result := "unliked"
	if liked {
		result = "liked"
	}
	metrics.Get().App.LikeTogglesTotal.WithLabelValues(string(contentType), result).Inc()
	logger.Log.Debug("Like toggled",
		logger.WithUserID(userID),
		logger.WithContent(string(contentType), contentID),
		zap.Bool("liked", liked),
		zap.Int64("count", count),
	)
	return liked, count, nil
}

// AddComment stores a comment and recomputes the item's comment counter
func (l *Ledger) AddComment(ctx context.Context, contentType models.ContentType, contentID uint, userID, text string) (*models.Comment, error) {
	text, err := validateCommentText(text)
	if err != nil {
		return nil, err
	}
	if err := l.requireContent(ctx, contentType, contentID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ContentType: contentType,
		ContentID:   contentID,
		UserID:      userID,
		Content:     text,
	}
	if err := l.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if _, err := l.RecountComments(ctx, contentType, contentID); err != nil {
		return nil, err
	}

	metrics.Get().App.CommentsTotal.WithLabelValues(string(contentType), "create").Inc()
	return comment, nil
}

// UpdateComment edits the text of a comment owned by userID
func (l *Ledger) UpdateComment(ctx context.Context, commentID uint, userID, text string) (*models.Comment, error) {
	text, err := validateCommentText(text)
	if err != nil {
		return nil, err
	}
	comment, err := l.ownedComment(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}

	if err := l.db.WithContext(ctx).Model(comment).Update("content", text).Error; err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	comment.Content = text
	metrics.Get().App.CommentsTotal.WithLabelValues(string(comment.ContentType), "update").Inc()
	return comment, nil
}

// DeleteComment removes a comment owned by userID and recomputes the counter
func (l *Ledger) DeleteComment(ctx context.Context, commentID uint, userID string) error {
	comment, err := l.ownedComment(ctx, commentID, userID)
	if err != nil {
		return err
	}
	if err := l.db.WithContext(ctx).Delete(comment).Error; err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if _, err := l.RecountComments(ctx, comment.ContentType, comment.ContentID); err != nil {
		return err
	}
	metrics.Get().App.CommentsTotal.WithLabelValues(string(comment.ContentType), "delete").Inc()
	return nil
}

func (l *Ledger) ownedComment(ctx context.Context, commentID uint, userID string) (*models.Comment, error) {
	var comment models.Comment
	err := l.db.WithContext(ctx).First(&comment, commentID).Error
	if database.IsNotFound(err) {
		return nil, apperrors.NotFound("comment")
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	if comment.UserID != userID {
		return nil, apperrors.Forbidden("you can only change your own comments")
	}
	return &comment, nil
}

func validateCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.ValidationError("content", "comment cannot be empty")
	}
	if len([]rune(text)) > maxCommentLength {
		return "", apperrors.ValidationError("content", fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
	}
	return text, nil
}

// Hide hides an item from the user's own listings. Hiding twice is a no-op.
func (l *Ledger) Hide(ctx context.Context, userID string, contentType models.ContentType, contentID uint) error {
	if err := l.requireContent(ctx, contentType, contentID); err != nil {
		return err
	}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.HiddenContent{UserID: userID, ContentType: contentType, ContentID: contentID}).Error
	if err != nil {
		return fmt.Errorf("hide content: %w", err)
	}
	metrics.Get().App.HidesTotal.WithLabelValues(string(contentType), "hide").Inc()
	return nil
}

// Unhide removes a hide if one exists
func (l *Ledger) Unhide(ctx context.Context, userID string, contentType models.ContentType, contentID uint) error {
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, contentType, contentID).
		Delete(&models.HiddenContent{}).Error
	if err != nil {
		return fmt.Errorf("unhide content: %w", err)
	}
	metrics.Get().App.HidesTotal.WithLabelValues(string(contentType), "unhide").Inc()
	return nil
}

// RecountLikes sets the like counter to the number of like rows and returns it
func (l *Ledger) RecountLikes(ctx context.Context, contentType models.ContentType, contentID uint) (int64, error) {
	return l.recount(ctx, recountLikesSQL, &models.LikeCounter{}, "likes", contentType, contentID)
}

// RecountComments sets the comment counter to the number of live comments and returns it
func (l *Ledger) RecountComments(ctx context.Context, contentType models.ContentType, contentID uint) (int64, error) {
	return l.recount(ctx, recountCommentsSQL, &models.CommentCounter{}, "comments", contentType, contentID)
}

func (l *Ledger) recount(ctx context.Context, stmt string, model any, name string, contentType models.ContentType, contentID uint) (int64, error) {
	db := l.db.WithContext(ctx)
	if err := db.Exec(stmt, contentType, contentID, contentType, contentID, time.Now().UTC()).Error; err != nil {
		return 0, fmt.Errorf("recount %s: %w", name, err)
	}

	var count int64
	err := db.Model(model).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Select("count").Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("read %s counter: %w", name, err)
	}
	metrics.Get().App.CounterRecomputes.WithLabelValues(name).Inc()
	return count, nil
}

// RecountAll re-derives every counter for live posts and videos.
// It returns the number of content items processed.
func (l *Ledger) RecountAll(ctx context.Context) (int, error) {
	processed := 0
	for _, ct := range []models.ContentType{models.ContentPost, models.ContentVideo} {
		var ids []uint
		err := l.db.WithContext(ctx).Table(ct.Table()).
			Where("deleted_at IS NULL").Order("id").Pluck("id", &ids).Error
		if err != nil {
			return processed, fmt.Errorf("list %s: %w", ct.Table(), err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			if _, err := l.RecountLikes(ctx, ct, id); err != nil {
				return processed, err
			}
			if _, err := l.RecountComments(ctx, ct, id); err != nil {
				return processed, err
			}
			processed++
		}
	}
	return processed, nil
}

// Counts reads counters for a batch of items. Items without a counter row count zero.
func (l *Ledger) Counts(ctx context.Context, contentType models.ContentType, ids []uint) (map[uint]Counts, error) {
	out := make(map[uint]Counts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var likes []models.LikeCounter
	err := l.db.WithContext(ctx).
		Where("content_type = ? AND content_id IN ?", contentType, ids).
		Find(&likes).Error
	if err != nil {
		return nil, fmt.Errorf("load like counters: %w", err)
	}
	var comments []models.CommentCounter
	err = l.db.WithContext(ctx).
		Where("content_type = ? AND content_id IN ?", contentType, ids).
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("load comment counters: %w", err)
	}

	for _, id := range ids {
		out[id] = Counts{}
	}
	for _, c := range likes {
		cur := out[c.ContentID]
		cur.Likes = c.Count
		out[c.ContentID] = cur
	}
	for _, c := range comments {
		cur := out[c.ContentID]
		cur.Comments = c.Count
		out[c.ContentID] = cur
	}
	return out, nil
}

// LikedBy returns the subset of ids the viewer has liked
func (l *Ledger) LikedBy(ctx context.Context, contentType models.ContentType, ids []uint, viewerID string) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if viewerID == "" || len(ids) == 0 {
		return out, nil
	}
	var liked []uint
	err := l.db.WithContext(ctx).Model(&models.Like{}).
		Where("content_type = ? AND content_id IN ? AND user_id = ?", contentType, ids, viewerID).
		Pluck("content_id", &liked).Error
	if err != nil {
		return nil, fmt.Errorf("load viewer likes: %w", err)
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

// Likers lists users who liked an item, most recent first, without users in a
// block relationship with the viewer
func (l *Ledger) Likers(ctx context.Context, contentType models.ContentType, contentID uint, viewerID string, limit, offset int) ([]models.User, int64, error) {
	if err := l.requireContent(ctx, contentType, contentID); err != nil {
		return nil, 0, err
	}
	excluded, err := l.filter.ExcludedOwners(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}

	query := l.db.WithContext(ctx).Model(&models.Like{}).
		Where("likes.content_type = ? AND likes.content_id = ?", contentType, contentID).
		Scopes(visibility.ExcludeOwners("likes.user_id", excluded)).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count likers: %w", err)
	}

	var users []models.User
	err = query.
		Select("users.*").
		Joins("JOIN users ON users.id = likes.user_id").
		Order("likes.created_at DESC, likes.id DESC").
		Limit(limit).Offset(offset).
		Scan(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list likers: %w", err)
	}
	return users, total, nil
}

// DeleteContentEngagement removes every engagement row of one item. It runs on tx so
// content deletion can include it in the same transaction.
func DeleteContentEngagement(tx *gorm.DB, contentType models.ContentType, contentID uint) error {
	target := "content_type = ? AND content_id = ?"
	for _, model := range []any{&models.Like{}, &models.HiddenContent{}, &models.LikeCounter{}, &models.CommentCounter{}} {
		if err := tx.Where(target, contentType, contentID).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Unscoped().Where(target, contentType, contentID).Delete(&models.Comment{}).Error
}

type target struct {
	ContentType models.ContentType
	ContentID   uint
}

// RemoveUserEngagement deletes a user's likes, comments and hides, then recomputes
// the counters of every item they touched
func (l *Ledger) RemoveUserEngagement(ctx context.Context, userID string) error {
	var likeTargets, commentTargets []target
	db := l.db.WithContext(ctx)
	if err := db.Model(&models.Like{}).Distinct("content_type", "content_id").
		Where("user_id = ?", userID).Scan(&likeTargets).Error; err != nil {
		return fmt.Errorf("load liked items: %w", err)
	}
	if err := db.Unscoped().Model(&models.Comment{}).Distinct("content_type", "content_id").
		Where("user_id = ?", userID).Scan(&commentTargets).Error; err != nil {
		return fmt.Errorf("load commented items: %w", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.HiddenContent{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("user_id = ?", userID).Delete(&models.Comment{}).Error
	})
	if err != nil {
		return fmt.Errorf("remove user engagement: %w", err)
	}

	for _, t := range likeTargets {
		if _, err := l.RecountLikes(ctx, t.ContentType, t.ContentID); err != nil {
			return err
		}
	}
	for _, t := range commentTargets {
		if _, err := l.RecountComments(ctx, t.ContentType, t.ContentID); err != nil {
			return err
		}
	}
	return nil
}

// requireContent returns NotFound unless a live item of contentType has contentID
func (l *Ledger) requireContent(ctx context.Context, contentType models.ContentType, contentID uint) error {
	if !contentType.Valid() {
		return apperrors.ValidationError("content_type", "unknown content type")
	}
	var count int64
	err := l.db.WithContext(ctx).Table(contentType.Table()).
		Where("id = ? AND deleted_at IS NULL", contentID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check %s: %w", contentType, err)
	}
	if count == 0 {
		return apperrors.NotFound(string(contentType))
	}
	return nil
}
