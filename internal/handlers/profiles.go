package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/profile"
	"github.com/zfogg/vlogbook/backend/internal/storage"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"github.com/zfogg/vlogbook/backend/internal/util"
)

// ListProfiles lists every profile visible to the caller
// GET /api/v1/profile/
func (h *Handlers) ListProfiles(c *gin.Context) {
	page := util.ParsePage(c)
	viewer := util.ViewerID(c)

	ctx, span := telemetry.GetBusinessEvents().TraceListing(c.Request.Context(), "profiles", viewer, page.Limit, page.Offset)
	profiles, total, err := h.profiles.ListProfiles(ctx, viewer, page.Limit, page.Offset)
	telemetry.End(span, err)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(profiles, total, page))
}

// GetProfile returns a user's profile with follower, following, post and vlog counts
// GET /api/v1/profile/:userId/
func (h *Handlers) GetProfile(c *gin.Context) {
	view, err := h.profiles.GetProfile(c.Request.Context(), c.Param("userId"), util.ViewerID(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// EditProfile updates the caller's profile. Accepts JSON, or multipart with
// avatar and background_pic files.
// PUT /api/v1/profile/edit-profile/
func (h *Handlers) EditProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Bio        *string `json:"bio" form:"bio"`
		HideAvatar *bool   `json:"hide_avatar" form:"hide_avatar"`
	}
	if err := c.ShouldBind(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}
	update := profile.Update{Bio: req.Bio, HideAvatar: req.HideAvatar}

	if fh, err := c.FormFile("avatar"); err == nil {
		url, err := h.storeImage(c, storage.KindAvatar, "avatar", userID, fh)
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		update.Avatar = &url
	}
	if fh, err := c.FormFile("background_pic"); err == nil {
		url, err := h.storeImage(c, storage.KindImage, "background_pic", userID, fh)
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		update.BackgroundPic = &url
	}

	prof, err := h.profiles.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}

// Followers lists the profiles following a user
// GET /api/v1/profile/:userId/followers/
func (h *Handlers) Followers(c *gin.Context) {
	page := util.ParsePage(c)
	list, total, err := h.profiles.Followers(c.Request.Context(), c.Param("userId"), util.ViewerID(c), page.Limit, page.Offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(list, total, page))
}

// Following lists the profiles a user follows
// GET /api/v1/profile/:userId/following/
func (h *Handlers) Following(c *gin.Context) {
	page := util.ParsePage(c)
	list, total, err := h.profiles.Following(c.Request.Context(), c.Param("userId"), util.ViewerID(c), page.Limit, page.Offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(list, total, page))
}

// UserVlogs lists a user's videos
// GET /api/v1/profile/:userId/vlogs/
func (h *Handlers) UserVlogs(c *gin.Context) {
	page := util.ParsePage(c)
	videos, total, err := h.profiles.UserVideos(c.Request.Context(), c.Param("userId"), util.ViewerID(c), page.Limit, page.Offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(videos, total, page))
}

// UserPosts lists a user's posts
// GET /api/v1/profile/:userId/posts/
func (h *Handlers) UserPosts(c *gin.Context) {
	page := util.ParsePage(c)
	posts, total, err := h.profiles.UserPosts(c.Request.Context(), c.Param("userId"), util.ViewerID(c), page.Limit, page.Offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.PageResponse(posts, total, page))
}
