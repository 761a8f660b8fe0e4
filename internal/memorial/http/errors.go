package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imprimeturecuerdo/memorial-backend/internal/auth"
	"github.com/imprimeturecuerdo/memorial-backend/internal/content"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

// statusFor maps service errors to HTTP statuses. Anything unrecognised is
// a 500 whose detail stays in the log.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, roles.ErrUnauthenticated):
		return http.StatusUnauthorized, "sign in required"
	case errors.Is(err, roles.ErrBlocked):
		return http.StatusForbidden, "you are blocked on this memorial"
	case errors.Is(err, roles.ErrForbidden):
		return http.StatusForbidden, "insufficient permissions"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, docstore.ErrNotFound), errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrUnknownEmoji):
		return http.StatusBadRequest, "unknown emoji"
	case errors.Is(err, domain.ErrUnknownAction):
		return http.StatusBadRequest, "unknown action"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, docstore.ErrInvalidPath):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "report is no longer open"
	case errors.Is(err, docstore.ErrConflict):
		return http.StatusConflict, "concurrent update, retry"
	case errors.Is(err, docstore.ErrPermissionDenied):
		return http.StatusForbidden, "insufficient permissions"
	}
	return http.StatusInternalServerError, "internal error"
}

func (h *Handler) fail(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("memorial", c.Param("memorialId")).
			Msg("request failed")
	}

	body := gin.H{"error": msg}
	if errors.Is(err, roles.ErrBlocked) {
		body["blocked"] = true
	}
	c.AbortWithStatusJSON(code, body)
}

func memorialID(c *gin.Context) string {
	return c.Param("memorialId")
}

// actor is the caller as the services see it; UID is empty when anonymous.
func actor(c *gin.Context) service.Actor {
	u, ok := auth.CurrentUser(c)
	if !ok {
		return service.Actor{}
	}
	return service.Actor{UID: u.UID, Name: domain.DisplayName(u.DisplayName)}
}

func photoParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("photo"))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func intQuery(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}
