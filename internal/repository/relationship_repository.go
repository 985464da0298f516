package repository

import (
	"context"
	"fmt"

	"github.com/zfogg/vlogbook/backend/internal/database"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"gorm.io/gorm"
)

// ListOptions windows a relationship listing. Exclude drops users from the result
// before pagination so counts and pages stay consistent.
type ListOptions struct {
	Exclude []string
	Limit   int
	Offset  int
}

// RelationshipRepository stores directed block and follow edges between users
type RelationshipRepository interface {
	// Blocks
	CreateBlock(ctx context.Context, blockerID, blockedID string) (*models.UserBlock, error)
	RemoveBlock(ctx context.Context, blockerID, blockedID string) error
	ListBlocks(ctx context.Context, blockerID string) ([]models.UserBlock, error)
	BlockedIDs(ctx context.Context, userID string) ([]string, error)
	BlockerIDs(ctx context.Context, userID string) ([]string, error)
	IsBlockedEitherWay(ctx context.Context, a, b string) (bool, error)

	// Follows
	CreateFollow(ctx context.Context, followerID, followingID string) (*models.Follow, error)
	RemoveFollow(ctx context.Context, followerID, followingID string) error
	ListFollowers(ctx context.Context, userID string, opts ListOptions) ([]string, int64, error)
	ListFollowing(ctx context.Context, userID string, opts ListOptions) ([]string, int64, error)
	ListFollows(ctx context.Context, limit, offset int) ([]models.Follow, int64, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)

	// RemoveAllForUser drops every block and follow edge touching userID
	RemoveAllForUser(ctx context.Context, userID string) error
}

type relationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

// CreateBlock records blocker → blocked and, in the same transaction, deletes
// follow edges in both directions between the pair.
func (r *relationshipRepository) CreateBlock(ctx context.Context, blockerID, blockedID string) (*models.UserBlock, error) {
	if blockerID == blockedID {
		return nil, apperrors.SelfReference("you cannot block yourself")
	}

	block := &models.UserBlock{BlockerID: blockerID, BlockedID: blockedID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(
			"(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)",
			blockerID, blockedID, blockedID, blockerID,
		).Delete(&models.Follow{}).Error
		if err != nil {
			return fmt.Errorf("delete follows: %w", err)
		}
		return tx.Create(block).Error
	})
	if database.IsUniqueViolation(err) {
		return nil, apperrors.DuplicateRelation("you have already blocked this user")
	}
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	return block, nil
}

// RemoveBlock deletes the block edge. Follows removed by the block stay removed.
func (r *relationshipRepository) RemoveBlock(ctx context.Context, blockerID, blockedID string) error {
	result := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.UserBlock{})
	if result.Error != nil {
		return fmt.Errorf("remove block: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("block")
	}
	return nil
}

// ListBlocks returns the caller's outgoing blocks, newest first, with the blocked user loaded
func (r *relationshipRepository) ListBlocks(ctx context.Context, blockerID string) ([]models.UserBlock, error) {
	var blocks []models.UserBlock
	err := r.db.WithContext(ctx).
		Preload("Blocked").
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC, id DESC").
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}

// BlockedIDs returns the users userID has blocked
func (r *relationshipRepository) BlockedIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("blocker_id = ?", userID).
		Pluck("blocked_id", &ids).Error
	return ids, err
}

// BlockerIDs returns the users who have blocked userID
func (r *relationshipRepository) BlockerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("blocked_id = ?", userID).
		Pluck("blocker_id", &ids).Error
	return ids, err
}

// IsBlockedEitherWay reports whether a has blocked b or b has blocked a
func (r *relationshipRepository) IsBlockedEitherWay(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// CreateFollow records follower → following. Blocks are not consulted here.
func (r *relationshipRepository) CreateFollow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	if followerID == followingID {
		return nil, apperrors.SelfReference("you cannot follow yourself")
	}

	follow := &models.Follow{FollowerID: followerID, FollowingID: followingID}
	err := r.db.WithContext(ctx).Create(follow).Error
	if database.IsUniqueViolation(err) {
		return nil, apperrors.DuplicateRelation("you are already following this user")
	}
	if err != nil {
		return nil, fmt.Errorf("create follow: %w", err)
	}
	return follow, nil
}

// RemoveFollow deletes follower → following; NotFound if there is no such follow
func (r *relationshipRepository) RemoveFollow(ctx context.Context, followerID, followingID string) error {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return fmt.Errorf("remove follow: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("follow")
	}
	return nil
}

// ListFollowers returns follower ids of userID in follow order
func (r *relationshipRepository) ListFollowers(ctx context.Context, userID string, opts ListOptions) ([]string, int64, error) {
	return r.listEdges(ctx, "following_id", "follower_id", userID, opts)
}

// ListFollowing returns the ids userID follows, in follow order
func (r *relationshipRepository) ListFollowing(ctx context.Context, userID string, opts ListOptions) ([]string, int64, error) {
	return r.listEdges(ctx, "follower_id", "following_id", userID, opts)
}

func (r *relationshipRepository) listEdges(ctx context.Context, matchCol, selectCol, userID string, opts ListOptions) ([]string, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Follow{}).Where(matchCol+" = ?", userID)
	if len(opts.Exclude) > 0 {
		query = query.Where(selectCol+" NOT IN ?", opts.Exclude)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count follows: %w", err)
	}

	var ids []string
	q := query.Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit).Offset(opts.Offset)
	}
	if err := q.Pluck(selectCol, &ids).Error; err != nil {
		return nil, 0, fmt.Errorf("list follows: %w", err)
	}
	return ids, total, nil
}

// ListFollows returns every follow edge, newest first
func (r *relationshipRepository) ListFollows(ctx context.Context, limit, offset int) ([]models.Follow, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var follows []models.Follow
	err := r.db.WithContext(ctx).
		Preload("Follower").Preload("Following").
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&follows).Error
	return follows, total, err
}

// IsFollowing reports whether followerID follows followingID
func (r *relationshipRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// CountFollowers counts users following userID
func (r *relationshipRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("following_id = ?", userID).Count(&count).Error
	return count, err
}

// CountFollowing counts users userID follows
func (r *relationshipRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}

// RemoveAllForUser deletes every block and follow involving userID
func (r *relationshipRepository) RemoveAllForUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id = ? OR following_id = ?", userID, userID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		return tx.Where("blocker_id = ? OR blocked_id = ?", userID, userID).Delete(&models.UserBlock{}).Error
	})
}
