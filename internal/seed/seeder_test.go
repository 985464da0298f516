package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/zfogg/vlogbook/backend/internal/auth"
	"github.com/zfogg/vlogbook/backend/internal/content"
	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/email"
	"github.com/zfogg/vlogbook/backend/internal/engagement"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/profile"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
	"gorm.io/gorm"
)

type SeederTestSuite struct {
	suite.Suite
	db     *gorm.DB
	seeder *Seeder
}

func (s *SeederTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	users := repository.NewUserRepository(s.db)
	relations := repository.NewRelationshipRepository(s.db)
	bus := events.NewBus()
	filter := visibility.NewFilter(s.db, relations)
	ledger := engagement.NewLedger(s.db, filter)
	store := content.NewStore(s.db, filter, ledger)
	profiles := profile.NewAggregator(s.db, users, relations, filter, store, bus)
	profiles.Subscribe(bus)

	s.seeder = NewSeeder(Services{
		DB:        s.db,
		Auth:      auth.NewService(s.db, users, bus, &email.MemoryNotifier{}, auth.Config{JWTSecret: "seed-secret"}),
		Content:   store,
		Ledger:    ledger,
		Relations: relations,
		Profiles:  profiles,
	}, 42)
}

func TestSeederSuite(t *testing.T) {
	suite.Run(t, new(SeederTestSuite))
}

func (s *SeederTestSuite) count(model any) int64 {
	var n int64
	s.Require().NoError(s.db.Model(model).Count(&n).Error)
	return n
}

func (s *SeederTestSuite) TestSeedSmallDataset() {
	res, err := s.seeder.Seed(context.Background(), Options{
		Users: 5, PostsPerUser: 2, VideosPerUser: 1, Follows: 6, Likes: 10, Comments: 8, Blocks: 2,
	})
	s.Require().NoError(err)

	s.Len(res.Users, 5)
	s.Len(res.Posts, 10)
	s.Len(res.Videos, 5)
	s.Equal(int64(5), s.count(&models.User{}))
	s.Equal(int64(5), s.count(&models.Profile{}))
	s.Equal(int64(res.Likes), s.count(&models.Like{}))
	s.Equal(int64(8), s.count(&models.Comment{}))
	s.Equal(int64(res.Blocks), s.count(&models.UserBlock{}))

	// Counters agree with the rows they summarize
	var likeTotal, commentTotal int64
	s.Require().NoError(s.db.Model(&models.LikeCounter{}).Select("COALESCE(SUM(count), 0)").Scan(&likeTotal).Error)
	s.Require().NoError(s.db.Model(&models.CommentCounter{}).Select("COALESCE(SUM(count), 0)").Scan(&commentTotal).Error)
	s.Equal(int64(res.Likes), likeTotal)
	s.Equal(int64(8), commentTotal)
}

func (s *SeederTestSuite) TestSeededUsersHaveValidNames() {
	res, err := s.seeder.Seed(context.Background(), Options{Users: 1})
	s.Require().NoError(err)
	s.Require().Len(res.Users, 1)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, "id = ?", res.Users[0].ID).Error)
	s.True(auth.ValidUsername(stored.Username))
	s.NotEmpty(stored.Avatar)
}

func (s *SeederTestSuite) TestClean() {
	_, err := s.seeder.Seed(context.Background(), Options{Users: 3, PostsPerUser: 1, Likes: 2, Comments: 2, Follows: 2})
	s.Require().NoError(err)

	s.Require().NoError(s.seeder.Clean(context.Background()))
	for _, model := range models.All() {
		s.Equal(int64(0), s.count(model), "%T", model)
	}
}
