package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/content"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/storage"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"github.com/zfogg/vlogbook/backend/internal/util"
)

// CreatePost uploads an image and creates a post
// POST /api/v1/post/createpost/ (multipart: image, content)
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		util.RespondValidationError(c, "image", "an image file is required")
		return
	}
	imageURL, err := h.storeImage(c, storage.KindImage, "image", userID, fh)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	post, err := h.content.CreatePost(c.Request.Context(), userID, imageURL, c.PostForm("content"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// ListPosts is the global post feed
// GET /api/v1/post/
func (h *Handlers) ListPosts(c *gin.Context) {
	page := util.ParsePage(c)
	viewer := util.ViewerID(c)

	ctx, span := telemetry.GetBusinessEvents().TraceListing(c.Request.Context(), "posts", viewer, page.Limit, page.Offset)
	posts, total, err := h.content.ListPosts(ctx, viewer, page.Limit, page.Offset)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(posts, total, page))
}

// GetPost returns one post
// GET /api/v1/post/:id/
func (h *Handlers) GetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	post, err := h.content.GetPost(c.Request.Context(), id, util.ViewerID(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// UpdatePost edits the caller's post. Accepts JSON or multipart with a replacement image.
// PUT /api/v1/post/:id/
func (h *Handlers) UpdatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Content *string `json:"content" form:"content"`
	}
	if err := c.ShouldBind(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}
	update := content.PostUpdate{Content: req.Content}

	if fh, err := c.FormFile("image"); err == nil {
		url, err := h.storeImage(c, storage.KindImage, "image", userID, fh)
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		update.Image = &url
	}

	post, err := h.content.UpdatePost(c.Request.Context(), id, userID, update)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes the caller's post with its likes, comments and hides
// DELETE /api/v1/post/:id/
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.content.DeletePost(c.Request.Context(), id, userID); err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TogglePostLike likes or unlikes a post
// POST /api/v1/post/toggle-like/
func (h *Handlers) TogglePostLike(c *gin.Context) { h.toggleLike(c, models.ContentPost) }

// HidePost hides a post from the caller's listings
// POST /api/v1/post/hide-or-unhide-post/
func (h *Handlers) HidePost(c *gin.Context) { h.hide(c, models.ContentPost) }

// UnhidePost reverses HidePost
// DELETE /api/v1/post/hide-or-unhide-post/
func (h *Handlers) UnhidePost(c *gin.Context) { h.unhide(c, models.ContentPost) }

// PostLikers lists users who liked a post
// GET /api/v1/post/:id/likers/
func (h *Handlers) PostLikers(c *gin.Context) { h.likers(c, models.ContentPost) }
