package visibility

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/vlogbook/backend/internal/cache"
	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"gorm.io/gorm"
)

type FilterTestSuite struct {
	suite.Suite
	db        *gorm.DB
	relations repository.RelationshipRepository
	filter    *Filter
	ctx       context.Context
	a, b, c   *models.User
}

func (s *FilterTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.relations = repository.NewRelationshipRepository(s.db)
	s.filter = NewFilter(s.db, s.relations)
	s.ctx = context.Background()
	s.a = database.CreateTestUser(s.T(), s.db, "a")
	s.b = database.CreateTestUser(s.T(), s.db, "b")
	s.c = database.CreateTestUser(s.T(), s.db, "c")
}

func TestFilterSuite(t *testing.T) {
	suite.Run(t, new(FilterTestSuite))
}

func (s *FilterTestSuite) TestAnonymousExcludesNothing() {
	_, err := s.relations.CreateBlock(s.ctx, s.a.ID, s.b.ID)
	s.Require().NoError(err)

	owners, err := s.filter.ExcludedOwners(s.ctx, "")
	s.Require().NoError(err)
	s.Empty(owners)

	ids, err := s.filter.ExcludedContentIDs(s.ctx, "", models.ContentPost)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *FilterTestSuite) TestBlockIsSymmetricForVisibility() {
	_, err := s.relations.CreateBlock(s.ctx, s.a.ID, s.b.ID)
	s.Require().NoError(err)

	fromA, err := s.filter.ExcludedOwners(s.ctx, s.a.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.b.ID}, fromA)

	fromB, err := s.filter.ExcludedOwners(s.ctx, s.b.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.a.ID}, fromB)

	fromC, err := s.filter.ExcludedOwners(s.ctx, s.c.ID)
	s.Require().NoError(err)
	s.Empty(fromC)

	visible, err := s.filter.CanSee(s.ctx, s.b.ID, s.a.ID)
	s.Require().NoError(err)
	s.False(visible)

	visible, err = s.filter.CanSee(s.ctx, s.c.ID, s.a.ID)
	s.Require().NoError(err)
	s.True(visible)

	visible, err = s.filter.CanSee(s.ctx, s.a.ID, s.a.ID)
	s.Require().NoError(err)
	s.True(visible)
}

func (s *FilterTestSuite) TestMutualBlocksAreDeduplicated() {
	_, err := s.relations.CreateBlock(s.ctx, s.a.ID, s.b.ID)
	s.Require().NoError(err)
	_, err = s.relations.CreateBlock(s.ctx, s.b.ID, s.a.ID)
	s.Require().NoError(err)

	owners, err := s.filter.ExcludedOwners(s.ctx, s.a.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.b.ID}, owners)
}

func (s *FilterTestSuite) TestHidesArePrivate() {
	s.Require().NoError(s.db.Create(&models.HiddenContent{UserID: s.a.ID, ContentType: models.ContentPost, ContentID: 7}).Error)
	s.Require().NoError(s.db.Create(&models.HiddenContent{UserID: s.a.ID, ContentType: models.ContentVideo, ContentID: 9}).Error)

	ids, err := s.filter.ExcludedContentIDs(s.ctx, s.a.ID, models.ContentPost)
	s.Require().NoError(err)
	s.Equal([]uint{7}, ids)

	ids, err = s.filter.ExcludedContentIDs(s.ctx, s.b.ID, models.ContentPost)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *FilterTestSuite) TestScopes() {
	for _, owner := range []*models.User{s.a, s.b, s.c} {
		s.Require().NoError(s.db.Create(&models.Post{UserID: owner.ID, Image: "x.png"}).Error)
	}

	var posts []models.Post
	err := s.db.Scopes(
		ExcludeOwners("user_id", []string{s.a.ID}),
		ExcludeIDs("id", []uint{3}),
	).Order("id").Find(&posts).Error
	s.Require().NoError(err)
	s.Require().Len(posts, 1)
	s.Equal(s.b.ID, posts[0].UserID)

	posts = nil
	err = s.db.Scopes(ExcludeOwners("user_id", nil), ExcludeIDs("id", nil)).Find(&posts).Error
	s.Require().NoError(err)
	s.Len(posts, 3)
}

func TestCachedExclusionsInvalidatedByBlockEvents(t *testing.T) {
	db := database.NewTestDB(t)
	relations := repository.NewRelationshipRepository(db)
	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	filter := NewFilter(db, relations, WithCache(rc, time.Minute))
	bus := events.NewBus()
	filter.Subscribe(bus)
	ctx := context.Background()

	a := database.CreateTestUser(t, db, "a")
	b := database.CreateTestUser(t, db, "b")

	owners, err := filter.ExcludedOwners(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, owners)
	assert.True(t, mr.Exists(cacheKeyPrefix+b.ID))

	// A stale cache entry is served until invalidated
	_, err = relations.CreateBlock(ctx, a.ID, b.ID)
	require.NoError(t, err)
	owners, err = filter.ExcludedOwners(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, owners)

	require.NoError(t, bus.Publish(ctx, events.BlockEvent{Name: events.BlockCreated, BlockerID: a.ID, BlockedID: b.ID}))
	assert.False(t, mr.Exists(cacheKeyPrefix+b.ID))

	owners, err = filter.ExcludedOwners(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, owners)
}

func TestCacheFailureFallsBackToDatabase(t *testing.T) {
	db := database.NewTestDB(t)
	relations := repository.NewRelationshipRepository(db)
	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	filter := NewFilter(db, relations, WithCache(rc, time.Minute))
	ctx := context.Background()

	a := database.CreateTestUser(t, db, "a")
	b := database.CreateTestUser(t, db, "b")
	_, err := relations.CreateBlock(ctx, a.ID, b.ID)
	require.NoError(t, err)

	mr.Close()

	owners, err := filter.ExcludedOwners(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, owners)
}
