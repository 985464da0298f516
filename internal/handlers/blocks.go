package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/content"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"github.com/zfogg/vlogbook/backend/internal/util"
	"go.uber.org/zap"
)

// CreateBlock blocks another user. Follows in both directions are removed.
// POST /api/v1/blocks/
func (h *Handlers) CreateBlock(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Blocked string `json:"blocked" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	ctx, span := telemetry.GetBusinessEvents().TraceRelationship(c.Request.Context(), "block", userID, req.Blocked)
	block, err := h.createBlock(ctx, userID, req.Blocked)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "user blocked",
		"data":    blockSummaryOf(*block),
	})
}

func (h *Handlers) createBlock(ctx context.Context, blockerID, blockedID string) (*models.UserBlock, error) {
	if blockerID != blockedID {
		exists, err := h.users.Exists(ctx, blockedID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.NotFound("user")
		}
	}

	block, err := h.relations.CreateBlock(ctx, blockerID, blockedID)
	if err != nil {
		return nil, err
	}
	metrics.Get().App.BlocksTotal.WithLabelValues("create").Inc()
	h.publishBlock(ctx, events.BlockCreated, blockerID, blockedID)
	return block, nil
}

// RemoveBlock lifts a block. Removed follows are not restored.
// DELETE /api/v1/blocks/:blockedId/
func (h *Handlers) RemoveBlock(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	blockedID := c.Param("blockedId")

	ctx, span := telemetry.GetBusinessEvents().TraceRelationship(c.Request.Context(), "unblock", userID, blockedID)
	err := h.relations.RemoveBlock(ctx, userID, blockedID)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	metrics.Get().App.BlocksTotal.WithLabelValues("remove").Inc()
	h.publishBlock(ctx, events.BlockRemoved, userID, blockedID)
	c.Status(http.StatusNoContent)
}

// BlockList returns the caller's outgoing blocks
// GET /api/v1/block-list/
func (h *Handlers) BlockList(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	blocks, err := h.relations.ListBlocks(c.Request.Context(), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	out := make([]blockSummary, len(blocks))
	for i, b := range blocks {
		out[i] = blockSummaryOf(b)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

type blockSummary struct {
	ID        uint            `json:"id"`
	BlockedID string          `json:"blocked_id"`
	Blocked   *content.Author `json:"blocked,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func blockSummaryOf(b models.UserBlock) blockSummary {
	out := blockSummary{ID: b.ID, BlockedID: b.BlockedID, CreatedAt: b.CreatedAt}
	if b.Blocked.ID != "" {
		out.Blocked = &content.Author{ID: b.Blocked.ID, Username: b.Blocked.Username, Avatar: b.Blocked.Avatar}
	}
	return out
}

// publishBlock notifies subscribers (cache invalidation) of a block change.
// The edge is already committed, so handler failures are only logged.
func (h *Handlers) publishBlock(ctx context.Context, name events.Name, blockerID, blockedID string) {
	err := h.bus.Publish(ctx, events.BlockEvent{Name: name, BlockerID: blockerID, BlockedID: blockedID})
	if err != nil {
		logger.WarnWithFields("Block event handlers failed", err,
			logger.WithUserID(blockerID), zap.String("blocked_id", blockedID))
	}
}
