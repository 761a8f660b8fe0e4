package http

import "github.com/gin-gonic/gin"

// RegisterPublic mounts routes that need no token.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/auth/signin-error", h.SignInError)
}

// Register mounts routes behind FirebaseAuthMiddleware.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.GetProfile)
	rg.POST("/me/sync", h.SyncVisitor)
	rg.GET("/admin/access", h.AdminAccess)
}
