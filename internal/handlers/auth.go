package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/auth"
	"github.com/zfogg/vlogbook/backend/internal/storage"
	"github.com/zfogg/vlogbook/backend/internal/util"
)

// Login exchanges a username and password for a token pair
// POST /api/v1/login/
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" form:"username" binding:"required"`
		Password string `json:"password" form:"password" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	user := result.User
	prof, err := h.profiles.EnsureProfile(c.Request.Context(), user.ID, user.Avatar)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access":       result.Access,
		"refresh":      result.Refresh,
		"user":         user.Username,
		"id":           user.ID,
		"avatar":       user.Avatar,
		"is_staff":     user.IsStaff,
		"is_active":    user.IsActive,
		"phone_number": user.PhoneNumber,
		"profile_id":   prof.ID,
	})
}

// RefreshToken rotates a refresh token
// POST /api/v1/login/refresh/
func (h *Handlers) RefreshToken(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Register creates an account. Accepts JSON or a multipart form with an optional avatar file.
// POST /api/v1/register/
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	if fh, err := c.FormFile("avatar"); err == nil {
		url, err := h.storeImage(c, storage.KindAvatar, "avatar", "anonymous", fh)
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		req.Avatar = url
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"avatar":   user.Avatar,
	})
}

// ForgetPassword mails a one-time reset code
// POST /api/v1/forget-password/
func (h *Handlers) ForgetPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "a reset code was sent to your email"})
}

// CheckCode verifies a reset code without consuming it
// POST /api/v1/check-code/
func (h *Handlers) CheckCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	if err := h.auth.CheckCode(c.Request.Context(), req.Email, req.Code); err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ConfirmPassword sets a new password with a reset code
// POST /api/v1/confirm-password/
func (h *Handlers) ConfirmPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}

	if err := h.auth.ConfirmPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "password updated"})
}
