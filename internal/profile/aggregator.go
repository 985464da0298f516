// Package profile assembles public profiles with their relationship and content counts.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/zfogg/vlogbook/backend/internal/content"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Summary is a profile as it appears in lists
type Summary struct {
	models.Profile
	Username string `json:"username"`
}

// View is a full profile with counts, as seen by one viewer
type View struct {
	Summary
	PostsCount     int64 `json:"posts_count"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	VlogsCount     int64 `json:"vlogs_count"`
	IsFollowing    bool  `json:"is_following"`
}

// Update holds editable profile fields; nil fields are left unchanged
type Update struct {
	Bio           *string
	Avatar        *string
	BackgroundPic *string
	HideAvatar    *bool
}

// Aggregator builds profile views
type Aggregator struct {
	db        *gorm.DB
	users     repository.UserRepository
	relations repository.RelationshipRepository
	filter    *visibility.Filter
	content   *content.Store
	bus       *events.Bus
}

// NewAggregator creates a profile aggregator
func NewAggregator(
	db *gorm.DB,
	users repository.UserRepository,
	relations repository.RelationshipRepository,
	filter *visibility.Filter,
	store *content.Store,
	bus *events.Bus,
) *Aggregator {
	return &Aggregator{db: db, users: users, relations: relations, filter: filter, content: store, bus: bus}
}

// Subscribe wires profile creation on registration and the one-way avatar sync
// from profiles to accounts
func (a *Aggregator) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.UserRegistered, func(ctx context.Context, e events.Event) error {
		ev := e.(events.UserRegisteredEvent)
		_, err := a.EnsureProfile(ctx, ev.UserID, ev.Avatar)
		return err
	})
	bus.Subscribe(events.ProfileAvatarChanged, func(ctx context.Context, e events.Event) error {
		ev := e.(events.ProfileAvatarChangedEvent)
		return a.users.UpdateAvatar(ctx, ev.UserID, ev.Avatar)
	})
}

// EnsureProfile returns the user's profile, creating it if missing.
// A non-default account avatar is copied onto a new profile.
func (a *Aggregator) EnsureProfile(ctx context.Context, userID, avatar string) (*models.Profile, error) {
	profile := &models.Profile{UserID: userID}
	if avatar != "" && avatar != models.DefaultAvatar {
		profile.Avatar = avatar
	}
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(profile).Error
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	var stored models.Profile
	if err := a.db.WithContext(ctx).Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &stored, nil
}

// GetProfile returns the profile of userID with counts. Block-related viewers get NotFound.
func (a *Aggregator) GetProfile(ctx context.Context, userID, viewerID string) (*View, error) {
	user, err := a.visibleUser(ctx, userID, viewerID)
	if err != nil {
		return nil, err
	}
	prof, err := a.EnsureProfile(ctx, user.ID, user.Avatar)
	if err != nil {
		return nil, err
	}

	view := &View{Summary: Summary{Profile: *prof, Username: user.Username}}
	if view.PostsCount, err = a.content.CountUserPosts(ctx, user.ID); err != nil {
		return nil, err
	}
	if view.VlogsCount, err = a.content.CountUserVideos(ctx, user.ID); err != nil {
		return nil, err
	}
	if view.FollowersCount, err = a.relations.CountFollowers(ctx, user.ID); err != nil {
		return nil, err
	}
	if view.FollowingCount, err = a.relations.CountFollowing(ctx, user.ID); err != nil {
		return nil, err
	}
	if viewerID != "" && viewerID != user.ID {
		if view.IsFollowing, err = a.relations.IsFollowing(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// ListProfiles lists every profile the viewer may see
func (a *Aggregator) ListProfiles(ctx context.Context, viewerID string, limit, offset int) ([]Summary, int64, error) {
	excluded, err := a.filter.ExcludedOwners(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}

	query := a.db.WithContext(ctx).Model(&models.Profile{}).
		Scopes(visibility.ExcludeOwners("profiles.user_id", excluded)).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	var summaries []Summary
	err = query.
		Select("profiles.*, users.username AS username").
		Joins("JOIN users ON users.id = profiles.user_id").
		Order("profiles.created_at DESC, profiles.id ASC").
		Limit(limit).Offset(offset).
		Scan(&summaries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	return summaries, total, nil
}

// UserPosts lists ownerID's posts as seen by viewerID
func (a *Aggregator) UserPosts(ctx context.Context, ownerID, viewerID string, limit, offset int) ([]content.PostView, int64, error) {
	if _, err := a.visibleUser(ctx, ownerID, viewerID); err != nil {
		return nil, 0, err
	}
	return a.content.ListUserPosts(ctx, ownerID, viewerID, limit, offset)
}

// UserVideos lists ownerID's vlogs as seen by viewerID
func (a *Aggregator) UserVideos(ctx context.Context, ownerID, viewerID string, limit, offset int) ([]content.VideoView, int64, error) {
	if _, err := a.visibleUser(ctx, ownerID, viewerID); err != nil {
		return nil, 0, err
	}
	return a.content.ListUserVideos(ctx, ownerID, viewerID, limit, offset)
}

// Followers lists profiles following userID, without users block-related to the viewer
func (a *Aggregator) Followers(ctx context.Context, userID, viewerID string, limit, offset int) ([]Summary, int64, error) {
	return a.edgeProfiles(ctx, userID, viewerID, limit, offset, a.relations.ListFollowers)
}

// Following lists profiles userID follows, without users block-related to the viewer
func (a *Aggregator) Following(ctx context.Context, userID, viewerID string, limit, offset int) ([]Summary, int64, error) {
	return a.edgeProfiles(ctx, userID, viewerID, limit, offset, a.relations.ListFollowing)
}

type edgeLister func(ctx context.Context, userID string, opts repository.ListOptions) ([]string, int64, error)

func (a *Aggregator) edgeProfiles(ctx context.Context, userID, viewerID string, limit, offset int, list edgeLister) ([]Summary, int64, error) {
	if _, err := a.visibleUser(ctx, userID, viewerID); err != nil {
		return nil, 0, err
	}
	excluded, err := a.filter.ExcludedOwners(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}
	ids, total, err := list(ctx, userID, repository.ListOptions{Exclude: excluded, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	summaries, err := a.summaries(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// summaries loads profiles for ids in order, creating missing profile rows
func (a *Aggregator) summaries(ctx context.Context, ids []string) ([]Summary, error) {
	users, err := a.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(users))
	for _, u := range users {
		prof, err := a.EnsureProfile(ctx, u.ID, u.Avatar)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{Profile: *prof, Username: u.Username})
	}
	return out, nil
}

// UpdateProfile edits the caller's profile. Avatar changes are propagated to the
// account through ProfileAvatarChanged.
func (a *Aggregator) UpdateProfile(ctx context.Context, userID string, update Update) (*models.Profile, error) {
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	prof, err := a.EnsureProfile(ctx, user.ID, user.Avatar)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if update.Bio != nil {
		changes["bio"] = strings.TrimSpace(*update.Bio)
	}
	if update.BackgroundPic != nil {
		changes["background_pic"] = *update.BackgroundPic
	}
	if update.HideAvatar != nil {
		changes["hide_avatar"] = *update.HideAvatar
	}
	avatarChanged := update.Avatar != nil && *update.Avatar != "" && *update.Avatar != prof.Avatar
	if avatarChanged {
		changes["avatar"] = *update.Avatar
	}
	if len(changes) == 0 {
		return prof, nil
	}

	if err := a.db.WithContext(ctx).Model(prof).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := a.db.WithContext(ctx).First(prof, "id = ?", prof.ID).Error; err != nil {
		return nil, fmt.Errorf("reload profile: %w", err)
	}

	if avatarChanged {
		err := a.bus.Publish(ctx, events.ProfileAvatarChangedEvent{UserID: userID, Avatar: prof.Avatar})
		if err != nil {
			logger.ErrorWithFields("Avatar sync failed", err, logger.WithUserID(userID), zap.String("avatar", prof.Avatar))
			return nil, apperrors.Internal("failed to sync avatar", err)
		}
	}
	return prof, nil
}

// visibleUser loads userID, hiding it from block-related viewers
func (a *Aggregator) visibleUser(ctx context.Context, userID, viewerID string) (*models.User, error) {
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	visible, err := a.filter.CanSee(ctx, viewerID, user.ID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NotFound("user")
	}
	return user, nil
}
