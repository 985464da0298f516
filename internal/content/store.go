// Package content stores posts, videos and comments and lists them through the
// viewer's visibility filter, enriched with engagement counters.
package content

import (
	"context"
	"fmt"

	"github.com/zfogg/vlogbook/backend/internal/engagement"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
	"gorm.io/gorm"
)

const maxPostContentLength = 1000

// Author is the public summary of a content owner shown next to an item
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Engagement is the viewer-specific engagement summary attached to listed items
type Engagement struct {
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	Liked        bool  `json:"liked"`
}

// Store reads and writes content items
type Store struct {
	db     *gorm.DB
	filter *visibility.Filter
	ledger *engagement.Ledger
}

// NewStore creates a content store
func NewStore(db *gorm.DB, filter *visibility.Filter, ledger *engagement.Ledger) *Store {
	return &Store{db: db, filter: filter, ledger: ledger}
}

// listScope is the shared visibility and ordering applied to every content listing
func (s *Store) listScope(ctx context.Context, viewerID string, contentType models.ContentType) (func(*gorm.DB) *gorm.DB, error) {
	excludedOwners, err := s.filter.ExcludedOwners(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	hidden, err := s.filter.ExcludedContentIDs(ctx, viewerID, contentType)
	if err != nil {
		return nil, err
	}
	table := contentType.Table()
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(
			visibility.ExcludeOwners(table+"."+contentType.OwnerColumn(), excludedOwners),
			visibility.ExcludeIDs(table+".id", hidden),
		)
	}, nil
}

// engagementFor loads counters and the viewer's likes for a batch of items
func (s *Store) engagementFor(ctx context.Context, contentType models.ContentType, ids []uint, viewerID string) (map[uint]Engagement, error) {
	counts, err := s.ledger.Counts(ctx, contentType, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.ledger.LikedBy(ctx, contentType, ids, viewerID)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]Engagement, len(ids))
	for _, id := range ids {
		c := counts[id]
		out[id] = Engagement{LikeCount: c.Likes, CommentCount: c.Comments, Liked: liked[id]}
	}
	return out, nil
}

func authorOf(u models.User) Author {
	return Author{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

// paginate applies limit/offset, leaving the query unbounded when limit is zero
func paginate(limit, offset int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit).Offset(offset)
	}
}

// countAndFind runs a count and a page fetch over the same filtered query,
// preloading the owner association on the page only
func countAndFind(query *gorm.DB, preload string, dest any, limit, offset int) (int64, error) {
	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	err := query.Preload(preload).
		Order("created_at DESC").Order("id ASC").
		Scopes(paginate(limit, offset)).
		Find(dest).Error
	if err != nil {
		return 0, fmt.Errorf("find: %w", err)
	}
	return total, nil
}
