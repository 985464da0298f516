// Package visibility decides which users and content items a viewer may see.
// Blocks hide owners in both directions; hides are private to the viewer who made them.
package visibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zfogg/vlogbook/backend/internal/cache"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"gorm.io/gorm"
)

const (
	cacheName      = "visibility"
	cacheKeyPrefix = "visibility:excluded:"
)

// Filter computes per-viewer exclusion sets
type Filter struct {
	db        *gorm.DB
	relations repository.RelationshipRepository
	cache     *cache.RedisClient
	ttl       time.Duration
}

// Option configures a Filter
type Option func(*Filter)

// WithCache enables the read-through exclusion cache
func WithCache(rc *cache.RedisClient, ttl time.Duration) Option {
	return func(f *Filter) {
		f.cache = rc
		f.ttl = ttl
	}
}

// NewFilter creates a filter backed by the relationship store
func NewFilter(db *gorm.DB, relations repository.RelationshipRepository, opts ...Option) *Filter {
	f := &Filter{db: db, relations: relations, ttl: 30 * time.Second}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ExcludedOwners returns every user in a block relationship with viewer, in either
// direction. Anonymous viewers exclude nobody.
func (f *Filter) ExcludedOwners(ctx context.Context, viewerID string) ([]string, error) {
	if viewerID == "" {
		return nil, nil
	}

	if f.cache != nil {
		if ids, ok := f.cachedOwners(ctx, viewerID); ok {
			return ids, nil
		}
	}

	blocked, err := f.relations.BlockedIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load blocked users: %w", err)
	}
	blockers, err := f.relations.BlockerIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load blockers: %w", err)
	}
	ids := union(blocked, blockers)

	if f.cache != nil {
		f.storeOwners(ctx, viewerID, ids)
	}
	return ids, nil
}

// ExcludedContentIDs returns ids of items of contentType the viewer has hidden
func (f *Filter) ExcludedContentIDs(ctx context.Context, viewerID string, contentType models.ContentType) ([]uint, error) {
	if viewerID == "" {
		return nil, nil
	}
	var ids []uint
	err := f.db.WithContext(ctx).Model(&models.HiddenContent{}).
		Where("user_id = ? AND content_type = ?", viewerID, contentType).
		Pluck("content_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load hidden content: %w", err)
	}
	return ids, nil
}

// CanSee reports whether viewer may see content owned by ownerID.
// Only blocks matter here; hides apply to listings.
func (f *Filter) CanSee(ctx context.Context, viewerID, ownerID string) (bool, error) {
	if viewerID == "" || viewerID == ownerID {
		return true, nil
	}
	excluded, err := f.ExcludedOwners(ctx, viewerID)
	if err != nil {
		return false, err
	}
	for _, id := range excluded {
		if id == ownerID {
			return false, nil
		}
	}
	return true, nil
}

// Invalidate drops cached exclusion sets for the given users
func (f *Filter) Invalidate(ctx context.Context, userIDs ...string) {
	if f.cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cacheKeyPrefix+id)
	}
	if err := f.cache.Del(ctx, keys...); err != nil {
		metrics.RecordCacheError(cacheName, "del")
		logger.WarnWithFields("Failed to invalidate visibility cache", err)
	}
}

// Subscribe wires cache invalidation to block events
func (f *Filter) Subscribe(bus *events.Bus) {
	invalidate := func(ctx context.Context, e events.Event) error {
		if be, ok := e.(events.BlockEvent); ok {
			f.Invalidate(ctx, be.BlockerID, be.BlockedID)
		}
		return nil
	}
	bus.Subscribe(events.BlockCreated, invalidate)
	bus.Subscribe(events.BlockRemoved, invalidate)
}

func (f *Filter) cachedOwners(ctx context.Context, viewerID string) ([]string, bool) {
	raw, err := f.cache.Get(ctx, cacheKeyPrefix+viewerID)
	if errors.Is(err, cache.ErrMiss) {
		metrics.RecordCacheMiss(cacheName)
		return nil, false
	}
	if err != nil {
		metrics.RecordCacheError(cacheName, "get")
		logger.WarnWithFields("Visibility cache read failed", err, logger.WithViewerID(viewerID))
		return nil, false
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		metrics.RecordCacheError(cacheName, "decode")
		return nil, false
	}
	metrics.RecordCacheHit(cacheName)
	return ids, true
}

func (f *Filter) storeOwners(ctx context.Context, viewerID string, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := f.cache.SetEx(ctx, cacheKeyPrefix+viewerID, raw, f.ttl); err != nil {
		metrics.RecordCacheError(cacheName, "set")
		logger.WarnWithFields("Visibility cache write failed", err, logger.WithViewerID(viewerID))
	}
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
