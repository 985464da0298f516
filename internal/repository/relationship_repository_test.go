package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/vlogbook/backend/internal/database"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"gorm.io/gorm"
)

type RelationshipRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repo  RelationshipRepository
	ctx   context.Context
	alice *models.User
	bob   *models.User
	carol *models.User
}

func (s *RelationshipRepositoryTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.repo = NewRelationshipRepository(s.db)
	s.ctx = context.Background()
	s.alice = database.CreateTestUser(s.T(), s.db, "alice")
	s.bob = database.CreateTestUser(s.T(), s.db, "bob")
	s.carol = database.CreateTestUser(s.T(), s.db, "carol")
}

func TestRelationshipRepositorySuite(t *testing.T) {
	suite.Run(t, new(RelationshipRepositoryTestSuite))
}

func (s *RelationshipRepositoryTestSuite) TestCreateBlockRemovesFollowsBothWays() {
	_, err := s.repo.CreateFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	_, err = s.repo.CreateFollow(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	_, err = s.repo.CreateFollow(s.ctx, s.alice.ID, s.carol.ID)
	s.Require().NoError(err)

	block, err := s.repo.CreateBlock(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(s.alice.ID, block.BlockerID)
	s.Equal(s.bob.ID, block.BlockedID)

	following, err := s.repo.IsFollowing(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(following)
	following, err = s.repo.IsFollowing(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.False(following)

	// Unrelated edges survive
	following, err = s.repo.IsFollowing(s.ctx, s.alice.ID, s.carol.ID)
	s.Require().NoError(err)
	s.True(following)
}

func (s *RelationshipRepositoryTestSuite) TestCreateBlockRejectsSelfAndDuplicate() {
	_, err := s.repo.CreateBlock(s.ctx, s.alice.ID, s.alice.ID)
	s.True(apperrors.Is(err, apperrors.ErrSelfReference))

	_, err = s.repo.CreateBlock(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)

	_, err = s.repo.CreateBlock(s.ctx, s.alice.ID, s.bob.ID)
	s.True(apperrors.Is(err, apperrors.ErrDuplicateRelation))

	// The reverse direction is a distinct edge
	_, err = s.repo.CreateBlock(s.ctx, s.bob.ID, s.alice.ID)
	s.NoError(err)
}

func (s *RelationshipRepositoryTestSuite) TestRemoveBlockDoesNotRestoreFollows() {
	_, err := s.repo.CreateFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	_, err = s.repo.CreateBlock(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.RemoveBlock(s.ctx, s.alice.ID, s.bob.ID))

	following, err := s.repo.IsFollowing(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(following)

	err = s.repo.RemoveBlock(s.ctx, s.alice.ID, s.bob.ID)
	s.True(apperrors.Is(err, apperrors.ErrNotFound))
}

func (s *RelationshipRepositoryTestSuite) TestBlockIDLookups() {
	_, err := s.repo.CreateBlock(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	_, err = s.repo.CreateBlock(s.ctx, s.carol.ID, s.alice.ID)
	s.Require().NoError(err)

	blocked, err := s.repo.BlockedIDs(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.bob.ID}, blocked)

	blockers, err := s.repo.BlockerIDs(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.carol.ID}, blockers)

	either, err := s.repo.IsBlockedEitherWay(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.True(either)

	either, err = s.repo.IsBlockedEitherWay(s.ctx, s.bob.ID, s.carol.ID)
	s.Require().NoError(err)
	s.False(either)

	blocks, err := s.repo.ListBlocks(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Require().Len(blocks, 1)
	s.Equal("bob", blocks[0].Blocked.Username)
}

func (s *RelationshipRepositoryTestSuite) TestFollowRules() {
	_, err := s.repo.CreateFollow(s.ctx, s.alice.ID, s.alice.ID)
	s.True(apperrors.Is(err, apperrors.ErrSelfReference))

	_, err = s.repo.CreateFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)

	_, err = s.repo.CreateFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.True(apperrors.Is(err, apperrors.ErrDuplicateRelation))

	s.Require().NoError(s.repo.RemoveFollow(s.ctx, s.alice.ID, s.bob.ID))
	err = s.repo.RemoveFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.True(apperrors.Is(err, apperrors.ErrNotFound))
}

func (s *RelationshipRepositoryTestSuite) TestFollowerListingsKeepInsertionOrder() {
	dave := database.CreateTestUser(s.T(), s.db, "dave")
	for _, u := range []*models.User{s.carol, s.alice, dave} {
		_, err := s.repo.CreateFollow(s.ctx, u.ID, s.bob.ID)
		s.Require().NoError(err)
	}

	ids, total, err := s.repo.ListFollowers(s.ctx, s.bob.ID, ListOptions{})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Equal([]string{s.carol.ID, s.alice.ID, dave.ID}, ids)

	ids, total, err = s.repo.ListFollowers(s.ctx, s.bob.ID, ListOptions{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Equal([]string{s.alice.ID}, ids)

	ids, total, err = s.repo.ListFollowers(s.ctx, s.bob.ID, ListOptions{Exclude: []string{s.alice.ID}})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Equal([]string{s.carol.ID, dave.ID}, ids)

	following, _, err := s.repo.ListFollowing(s.ctx, s.carol.ID, ListOptions{})
	s.Require().NoError(err)
	s.Equal([]string{s.bob.ID}, following)

	count, err := s.repo.CountFollowers(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), count)
	count, err = s.repo.CountFollowing(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RelationshipRepositoryTestSuite) TestRemoveAllForUser() {
	_, err := s.repo.CreateFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	_, err = s.repo.CreateFollow(s.ctx, s.carol.ID, s.alice.ID)
	s.Require().NoError(err)
	_, err = s.repo.CreateBlock(s.ctx, s.bob.ID, s.carol.ID)
	s.Require().NoError(err)
	_, err = s.repo.CreateBlock(s.ctx, s.carol.ID, s.alice.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.RemoveAllForUser(s.ctx, s.alice.ID))

	follows, total, err := s.repo.ListFollows(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(follows)

	blocked, err := s.repo.BlockedIDs(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.carol.ID}, blocked)
}

func TestCreateFollowUnknownUserFailsForeignKey(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewRelationshipRepository(db)
	alice := database.CreateTestUser(t, db, "alice")

	_, err := repo.CreateFollow(context.Background(), alice.ID, "missing-user")
	require.Error(t, err)
	assert.False(t, apperrors.Is(err, apperrors.ErrDuplicateRelation))
}
