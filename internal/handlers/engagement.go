package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/content"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"github.com/zfogg/vlogbook/backend/internal/util"
)

// contentRef is the body of like, hide and comment requests. Posts are addressed
// by post_id and videos by video_id.
type contentRef struct {
	PostID  flexibleID `json:"post_id"`
	VideoID flexibleID `json:"video_id"`
	UserID  string     `json:"user_id"`
	Content string     `json:"content"`
}

func (r contentRef) id(ct models.ContentType) uint {
	if ct == models.ContentVideo {
		return uint(r.VideoID)
	}
	return uint(r.PostID)
}

func idField(ct models.ContentType) string {
	return string(ct) + "_id"
}

// bindContentRef parses the body and requires the id field for ct
func bindContentRef(c *gin.Context, ct models.ContentType) (contentRef, bool) {
	var ref contentRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		util.RespondBindError(c, err)
		return ref, false
	}
	if ref.id(ct) == 0 {
		util.RespondValidationError(c, idField(ct), "this field is required")
		return ref, false
	}
	return ref, true
}

func (h *Handlers) toggleLike(c *gin.Context, ct models.ContentType) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ref, ok := bindContentRef(c, ct)
	if !ok {
		return
	}
	if ref.UserID != "" && ref.UserID != userID {
		util.RespondWithAPIError(c, apperrors.Unauthorized("you can only like as yourself"))
		return
	}

	ctx, span := telemetry.GetBusinessEvents().TraceEngagement(c.Request.Context(), "toggle_like", string(ct), ref.id(ct))
	liked, count, err := h.ledger.ToggleLike(ctx, ct, ref.id(ct), userID)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
}

func (h *Handlers) hide(c *gin.Context, ct models.ContentType) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ref, ok := bindContentRef(c, ct)
	if !ok {
		return
	}

	ctx, span := telemetry.GetBusinessEvents().TraceEngagement(c.Request.Context(), "hide", string(ct), ref.id(ct))
	err := h.ledger.Hide(ctx, userID, ct, ref.id(ct))
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (h *Handlers) unhide(c *gin.Context, ct models.ContentType) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ref, ok := bindContentRef(c, ct)
	if !ok {
		return
	}

	ctx, span := telemetry.GetBusinessEvents().TraceEngagement(c.Request.Context(), "unhide", string(ct), ref.id(ct))
	err := h.ledger.Unhide(ctx, userID, ct, ref.id(ct))
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) createComment(c *gin.Context, ct models.ContentType) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ref, ok := bindContentRef(c, ct)
	if !ok {
		return
	}

	ctx, span := telemetry.GetBusinessEvents().TraceEngagement(c.Request.Context(), "comment", string(ct), ref.id(ct))
	comment, err := h.ledger.AddComment(ctx, ct, ref.id(ct), userID, ref.Content)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handlers) listComments(c *gin.Context, ct models.ContentType) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page := util.ParsePage(c)
	viewer := util.ViewerID(c)

	ctx, span := telemetry.GetBusinessEvents().TraceListing(c.Request.Context(), string(ct)+"_comments", viewer, page.Limit, page.Offset)
	comments, total, err := h.content.ListComments(ctx, ct, id, viewer, page.Limit, page.Offset)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(comments, total, page))
}

func (h *Handlers) likers(c *gin.Context, ct models.ContentType) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page := util.ParsePage(c)
	viewer := util.ViewerID(c)

	users, total, err := h.ledger.Likers(c.Request.Context(), ct, id, viewer, page.Limit, page.Offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	out := make([]content.Author, len(users))
	for i, u := range users {
		out[i] = content.Author{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
	}
	c.JSON(http.StatusOK, util.PageResponse(out, total, page))
}
