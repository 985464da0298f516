package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/content"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/util"
)

// CreatePostComment comments on a post
// POST /api/v1/post/createcomment/
func (h *Handlers) CreatePostComment(c *gin.Context) { h.createComment(c, models.ContentPost) }

// ListPostComments lists comments on a post
// GET /api/v1/post/:id/comments/
func (h *Handlers) ListPostComments(c *gin.Context) { h.listComments(c, models.ContentPost) }

// CreateVideoComment comments on a video
// POST /api/v1/videos/createcomment/
func (h *Handlers) CreateVideoComment(c *gin.Context) { h.createComment(c, models.ContentVideo) }

// ListVideoComments lists comments on a video
// GET /api/v1/videos/:id/comments/
func (h *Handlers) ListVideoComments(c *gin.Context) { h.listComments(c, models.ContentVideo) }

// ListAllComments lists comments across every post and video
// GET /api/v1/post/comments/
func (h *Handlers) ListAllComments(c *gin.Context) {
	page := util.ParsePage(c)
	comments, total, err := h.content.ListAllComments(c.Request.Context(), util.ViewerID(c), page.Limit, page.Offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(comments, total, page))
}

// postComment loads a comment and checks it belongs to the post in the path
func (h *Handlers) postComment(c *gin.Context) (*content.CommentView, bool) {
	postID, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	commentID, ok := idParam(c, "commentId")
	if !ok {
		return nil, false
	}

	comment, err := h.content.GetComment(c.Request.Context(), commentID, util.ViewerID(c))
	if err != nil {
		util.RespondWithError(c, err)
		return nil, false
	}
	if comment.ContentType != models.ContentPost || comment.ContentID != postID {
		util.RespondNotFound(c, "comment")
		return nil, false
	}
	return comment, true
}

// GetComment returns one comment
// GET /api/v1/post/:id/comments/:commentId/
func (h *Handlers) GetComment(c *gin.Context) {
	comment, ok := h.postComment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, comment)
}

// UpdateComment edits the caller's comment
// PUT /api/v1/post/:id/comments/:commentId/
func (h *Handlers) UpdateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	comment, ok := h.postComment(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	updated, err := h.ledger.UpdateComment(c.Request.Context(), comment.ID, userID, req.Content)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteComment removes the caller's comment
// DELETE /api/v1/post/:id/comments/:commentId/
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	comment, ok := h.postComment(c)
	if !ok {
		return
	}

	if err := h.ledger.DeleteComment(c.Request.Context(), comment.ID, userID); err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
