package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/auth"
)

// RouteOptions carries the middleware applied to route groups
type RouteOptions struct {
	Validator auth.TokenValidator
	// AuthLimit throttles credential endpoints; nil disables it
	AuthLimit gin.HandlerFunc
}

// RegisterRoutes mounts the API on group (normally /api/v1)
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, opts RouteOptions) {
	auth.RegisterBindingValidators()

	required := auth.RequireAuth(opts.Validator)
	optional := auth.OptionalAuth(opts.Validator)

	credentials := api.Group("/")
	if opts.AuthLimit != nil {
		credentials.Use(opts.AuthLimit)
	}
	credentials.POST("/login/", h.Login)
	credentials.POST("/login/refresh/", h.RefreshToken)
	credentials.POST("/register/", h.Register)
	credentials.POST("/forget-password/", h.ForgetPassword)
	credentials.POST("/check-code/", h.CheckCode)
	credentials.POST("/confirm-password/", h.ConfirmPassword)

	// Public reads resolve the caller when a token is sent
	public := api.Group("/", optional)
	public.GET("/post/", h.ListPosts)
	public.GET("/post/:id/", h.GetPost)
	public.GET("/post/:id/comments/", h.ListPostComments)
	public.GET("/post/:id/likers/", h.PostLikers)
	public.GET("/videos/", h.ListVideos)
	public.GET("/videos/:id/", h.GetVideo)
	public.GET("/videos/:id/comments/", h.ListVideoComments)
	public.GET("/videos/:id/likers/", h.VideoLikers)
	public.GET("/profile/", h.ListProfiles)
	public.GET("/profile/:userId/", h.GetProfile)
	public.GET("/profile/:userId/followers/", h.Followers)
	public.GET("/profile/:userId/following/", h.Following)
	public.GET("/profile/:userId/vlogs/", h.UserVlogs)
	public.GET("/profile/:userId/posts/", h.UserPosts)
	public.GET("/follow/", h.ListFollows)

	protected := api.Group("/", required)

	protected.POST("/blocks/", h.CreateBlock)
	protected.DELETE("/blocks/:blockedId/", h.RemoveBlock)
	protected.GET("/block-list/", h.BlockList)

	protected.POST("/post/createpost/", h.CreatePost)
	protected.PUT("/post/:id/", h.UpdatePost)
	protected.DELETE("/post/:id/", h.DeletePost)
	protected.POST("/post/createcomment/", h.CreatePostComment)
	protected.GET("/post/comments/", h.ListAllComments)
	protected.GET("/post/:id/comments/:commentId/", h.GetComment)
	protected.PUT("/post/:id/comments/:commentId/", h.UpdateComment)
	protected.DELETE("/post/:id/comments/:commentId/", h.DeleteComment)
	protected.POST("/post/toggle-like/", h.TogglePostLike)
	protected.POST("/post/hide-or-unhide-post/", h.HidePost)
	protected.DELETE("/post/hide-or-unhide-post/", h.UnhidePost)

	protected.POST("/videos/create/", h.CreateVideo)
	protected.PUT("/videos/:id/", h.UpdateVideo)
	protected.DELETE("/videos/:id/", h.DeleteVideo)
	protected.POST("/videos/createcomment/", h.CreateVideoComment)
	protected.POST("/videos/toggle-like/", h.ToggleVideoLike)
	protected.POST("/videos/hide-or-unhide-video/", h.HideVideo)
	protected.DELETE("/videos/hide-or-unhide-video/", h.UnhideVideo)

	protected.PUT("/profile/edit-profile/", h.EditProfile)
	protected.POST("/follow-user/", h.FollowUser)
	protected.DELETE("/unfollow/:userId/", h.UnfollowUser)
}
