package main

import (
	"github.com/spf13/cobra"
	"github.com/zfogg/vlogbook/backend/internal/container"
	"github.com/zfogg/vlogbook/backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *container.Container) error {
			if err := database.Migrate(c.DB()); err != nil {
				return err
			}
			return printResult("Migrations completed", map[string]bool{"migrated": true})
		})
	},
}
