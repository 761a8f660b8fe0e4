package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imprimeturecuerdo/memorial-backend/internal/auth"
	"github.com/imprimeturecuerdo/memorial-backend/internal/users"
)

// GetProfile returns the current user and, when recorded, their visitor row.
func (h *Handler) GetProfile(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	resp := gin.H{"user": user}
	if h.visitors != nil {
		v, err := h.visitors.Get(c.Request.Context(), user.UID)
		switch {
		case err == nil:
			resp["visitor"] = v
		case errors.Is(err, users.ErrNotFound):
		default:
			h.log.Warn().Err(err).Str("uid", user.UID).Msg("visitor lookup failed")
		}
	}

	c.JSON(http.StatusOK, resp)
}

// SyncVisitor records the signed-in user in the visitor directory. Called by
// the page after sign-in completes.
func (h *Handler) SyncVisitor(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var body struct {
		MemorialID string `json:"memorialId,omitempty"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "details": err.Error()})
			return
		}
	}

	if h.visitors == nil {
		c.JSON(http.StatusOK, gin.H{"user": user, "synced": false})
		return
	}

	v, err := h.visitors.EnsureVisitor(c.Request.Context(), users.UpsertVisitor{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		MemorialID:  strings.TrimSpace(body.MemorialID),
	})
	if err != nil {
		h.log.Error().Err(err).Str("uid", user.UID).Msg("visitor sync failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync visitor"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "visitor": v, "synced": true})
}

// AdminAccess gates the admin panel landing page, which is not scoped to a
// memorial: only global admins get in.
func (h *Handler) AdminAccess(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if h.admins == nil || !h.admins.IsGlobalAdmin(c.Request.Context(), uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": "global admin role required", "isGlobalAdmin": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "isGlobalAdmin": true})
}

// SignInError tells the browser shell whether to retry a failed popup
// sign-in as a redirect or to show a message.
func (h *Handler) SignInError(c *gin.Context) {
	c.JSON(http.StatusOK, auth.ClassifySignInError(c.Query("code")))
}
