package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/vlogbook/backend/internal/container"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
)

var (
	unblockBlocker string
	unblockBlocked string
	deleteUserID   string
)

var unblockCmd = &cobra.Command{
	Use:   "unblock",
	Short: "Remove a block on behalf of the blocker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *container.Container) error {
			ctx := cmd.Context()
			if err := c.Relations().RemoveBlock(ctx, unblockBlocker, unblockBlocked); err != nil {
				return err
			}
			metrics.Get().App.BlocksTotal.WithLabelValues("remove").Inc()
			err := c.Bus().Publish(ctx, events.BlockEvent{
				Name:      events.BlockRemoved,
				BlockerID: unblockBlocker,
				BlockedID: unblockBlocked,
			})
			if err != nil {
				return fmt.Errorf("block removed but cache invalidation failed: %w", err)
			}
			return printResult(fmt.Sprintf("Removed block %s -> %s", unblockBlocker, unblockBlocked),
				map[string]string{"blocker": unblockBlocker, "blocked": unblockBlocked})
		})
	},
}

var deleteUserCmd = &cobra.Command{
	Use:   "delete-user",
	Short: "Delete a user with their content, engagement and relationships",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *container.Container) error {
			if err := c.DeleteUserCascade(cmd.Context(), deleteUserID); err != nil {
				return err
			}
			return printResult("Deleted user "+deleteUserID, map[string]string{"deleted": deleteUserID})
		})
	},
}

func init() {
	unblockCmd.Flags().StringVar(&unblockBlocker, "blocker", "", "ID of the user who created the block")
	unblockCmd.Flags().StringVar(&unblockBlocked, "blocked", "", "ID of the blocked user")
	_ = unblockCmd.MarkFlagRequired("blocker")
	_ = unblockCmd.MarkFlagRequired("blocked")

	deleteUserCmd.Flags().StringVar(&deleteUserID, "id", "", "ID of the user to delete")
	_ = deleteUserCmd.MarkFlagRequired("id")
}
