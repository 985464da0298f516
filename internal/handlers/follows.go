package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"github.com/zfogg/vlogbook/backend/internal/util"
)

// ListFollows lists every follow edge
// GET /api/v1/follow/
func (h *Handlers) ListFollows(c *gin.Context) {
	page := util.ParsePage(c)
	follows, total, err := h.relations.ListFollows(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(follows, total, page))
}

// FollowUser follows another user. Users in a block relationship cannot follow each other.
// POST /api/v1/follow-user/
func (h *Handlers) FollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		FollowingID string `json:"following_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	ctx, span := telemetry.GetBusinessEvents().TraceRelationship(c.Request.Context(), "follow", userID, req.FollowingID)
	follow, err := h.follow(ctx, userID, req.FollowingID)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, follow)
}

func (h *Handlers) follow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	if followerID != followingID {
		exists, err := h.users.Exists(ctx, followingID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.NotFound("user")
		}
		blocked, err := h.relations.IsBlockedEitherWay(ctx, followerID, followingID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperrors.Forbidden("you cannot follow this user")
		}
	}

	follow, err := h.relations.CreateFollow(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	metrics.Get().App.FollowsTotal.WithLabelValues("create").Inc()
	return follow, nil
}

// UnfollowUser removes a follow edge
// DELETE /api/v1/unfollow/:userId/
func (h *Handlers) UnfollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	target := c.Param("userId")

	ctx, span := telemetry.GetBusinessEvents().TraceRelationship(c.Request.Context(), "unfollow", userID, target)
	err := h.relations.RemoveFollow(ctx, userID, target)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	metrics.Get().App.FollowsTotal.WithLabelValues("remove").Inc()
	c.Status(http.StatusNoContent)
}
