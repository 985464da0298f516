package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/content"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"github.com/zfogg/vlogbook/backend/internal/util"
	"go.uber.org/zap"
)

// ListVideos is the global video feed
// GET /api/v1/videos/
func (h *Handlers) ListVideos(c *gin.Context) {
	page := util.ParsePage(c)
	viewer := util.ViewerID(c)

	ctx, span := telemetry.GetBusinessEvents().TraceListing(c.Request.Context(), "videos", viewer, page.Limit, page.Offset)
	videos, total, err := h.content.ListVideos(ctx, viewer, page.Limit, page.Offset)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(videos, total, page))
}

// CreateVideo uploads a clip, extracts its thumbnail and creates a vlog
// POST /api/v1/videos/create/ (multipart: video, title, description)
func (h *Handlers) CreateVideo(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Title       string `form:"title" binding:"required"`
		Description string `form:"description"`
	}
	if err := c.ShouldBind(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	fh, err := c.FormFile("video")
	if err != nil {
		util.RespondValidationError(c, "video", "a video file is required")
		return
	}
	// Reject oversized or unsupported files before copying them to disk
	if err := h.media.Limits().ValidateVideoFile(fh.Filename, fh.Size); err != nil {
		util.RespondWithError(c, err)
		return
	}

	path, err := util.SaveUploadedFile(fh, h.uploadDir)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.WarnWithFields("Failed to remove upload temp file", err, zap.String("path", path))
		}
	}()

	upload, err := h.media.ProcessVideo(c.Request.Context(), userID, fh.Filename, path)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	video, err := h.content.CreateVideo(c.Request.Context(), content.NewVideo{
		AuthorID:     userID,
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     upload.VideoURL,
		ThumbnailURL: upload.ThumbnailURL,
		DurationMS:   upload.DurationMS,
		SizeBytes:    upload.SizeBytes,
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, video)
}

// GetVideo returns one video
// GET /api/v1/videos/:id/
func (h *Handlers) GetVideo(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	video, err := h.content.GetVideo(c.Request.Context(), id, util.ViewerID(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

// UpdateVideo edits the title or description of the caller's video
// PUT /api/v1/videos/:id/
func (h *Handlers) UpdateVideo(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Title       *string `json:"title" form:"title"`
		Description *string `json:"description" form:"description"`
	}
	if err := c.ShouldBind(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	video, err := h.content.UpdateVideo(c.Request.Context(), id, userID, content.VideoUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

// DeleteVideo removes the caller's video with its engagement
// DELETE /api/v1/videos/:id/
func (h *Handlers) DeleteVideo(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.content.DeleteVideo(c.Request.Context(), id, userID); err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleVideoLike likes or unlikes a video
// POST /api/v1/videos/toggle-like/
func (h *Handlers) ToggleVideoLike(c *gin.Context) { h.toggleLike(c, models.ContentVideo) }

// HideVideo hides a video from the caller's listings
// POST /api/v1/videos/hide-or-unhide-video/
func (h *Handlers) HideVideo(c *gin.Context) { h.hide(c, models.ContentVideo) }

// UnhideVideo reverses HideVideo
// DELETE /api/v1/videos/hide-or-unhide-video/
func (h *Handlers) UnhideVideo(c *gin.Context) { h.unhide(c, models.ContentVideo) }

// VideoLikers lists users who liked a video
// GET /api/v1/videos/:id/likers/
func (h *Handlers) VideoLikers(c *gin.Context) { h.likers(c, models.ContentVideo) }
