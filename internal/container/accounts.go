package container

import (
	"context"
	"fmt"

	"github.com/zfogg/vlogbook/backend/internal/logger"
	"go.uber.org/zap"
)

// DeleteUserCascade removes an account with everything that references it:
// engagement on other users' content, owned posts and videos, follow and block
// edges, the profile and pending password resets.
func (c *Container) DeleteUserCascade(ctx context.Context, userID string) error {
	if _, err := c.users.GetUser(ctx, userID); err != nil {
		return err
	}

	if err := c.ledger.RemoveUserEngagement(ctx, userID); err != nil {
		return err
	}
	removed, err := c.content.DeleteUserContent(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user content: %w", err)
	}

	blocked, err := c.relations.BlockedIDs(ctx, userID)
	if err != nil {
		return err
	}
	blockers, err := c.relations.BlockerIDs(ctx, userID)
	if err != nil {
		return err
	}
	related := append(blocked, blockers...)
	if err := c.relations.RemoveAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("remove relationships: %w", err)
	}
	if err := c.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	c.filter.Invalidate(ctx, append(related, userID)...)

	logger.Log.Info("User deleted",
		logger.WithUserID(userID),
		zap.Int("content_removed", removed),
		zap.Int("block_related", len(related)),
	)
	return nil
}
