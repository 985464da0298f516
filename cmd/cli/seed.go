package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/vlogbook/backend/internal/container"
	"github.com/zfogg/vlogbook/backend/internal/seed"
)

var (
	seedOpts  = seed.DevOptions
	seedValue int64
	seedClean bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, content and relationships",
	Long: `Seed creates fake data through the regular services, so counters,
profiles and relationship rules behave as they do for real traffic.
Every seeded account uses the password "` + seed.DefaultPassword + `".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedValue == 0 {
			seedValue = time.Now().UnixNano()
		}
		return withContainer(cmd.Context(), func(c *container.Container) error {
			seeder := seed.NewSeeder(seed.Services{
				DB:        c.DB(),
				Auth:      c.Auth(),
				Content:   c.Content(),
				Ledger:    c.Ledger(),
				Relations: c.Relations(),
				Profiles:  c.Profiles(),
			}, seedValue)

			if seedClean {
				if err := seeder.Clean(cmd.Context()); err != nil {
					return err
				}
			}

			res, err := seeder.Seed(cmd.Context(), seedOpts)
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("Seeded %d users, %d posts, %d videos, %d follows, %d likes, %d comments, %d blocks",
				len(res.Users), len(res.Posts), len(res.Videos), res.Follows, res.Likes, res.Comments, res.Blocks)
			return printResult(summary, map[string]int{
				"users":    len(res.Users),
				"posts":    len(res.Posts),
				"videos":   len(res.Videos),
				"follows":  res.Follows,
				"likes":    res.Likes,
				"comments": res.Comments,
				"blocks":   res.Blocks,
			})
		})
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.Users, "users", seedOpts.Users, "Number of users")
	f.IntVar(&seedOpts.PostsPerUser, "posts", seedOpts.PostsPerUser, "Posts per user")
	f.IntVar(&seedOpts.VideosPerUser, "videos", seedOpts.VideosPerUser, "Videos per user")
	f.IntVar(&seedOpts.Follows, "follows", seedOpts.Follows, "Number of follow edges")
	f.IntVar(&seedOpts.Likes, "likes", seedOpts.Likes, "Number of likes")
	f.IntVar(&seedOpts.Comments, "comments", seedOpts.Comments, "Number of comments")
	f.IntVar(&seedOpts.Blocks, "blocks", seedOpts.Blocks, "Number of blocks")
	f.Int64Var(&seedValue, "seed", 0, "Random seed (default: current time)")
	f.BoolVar(&seedClean, "clean", false, "Delete all existing rows first")
}
