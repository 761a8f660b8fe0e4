package middleware

import (
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/auth"
)

// FirebaseAuthMiddleware validates Firebase ID tokens and rejects requests
// without a valid one.
func FirebaseAuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		decoded, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		auth.SetUser(c, userFromToken(decoded))
		c.Set("firebase_token", decoded)
		c.Next()
	}
}

// OptionalFirebaseAuth attaches the user when a valid token is presented and
// otherwise lets the request through anonymously. Verification failures
// degrade to anonymous too.
func OptionalFirebaseAuth(verifier auth.TokenVerifier, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		decoded, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("ignoring invalid id token")
			c.Next()
			return
		}

		auth.SetUser(c, userFromToken(decoded))
		c.Set("firebase_token", decoded)
		c.Next()
	}
}

func userFromToken(t *fbauth.Token) auth.User {
	u := auth.User{UID: t.UID}
	if name, ok := t.Claims["name"].(string); ok {
		u.DisplayName = strings.TrimSpace(name)
	}
	if email, ok := t.Claims["email"].(string); ok {
		u.Email = email
	}
	return u
}

// extractToken extracts the Bearer token from the Authorization header.
// Browsers cannot set headers on EventSource or WebSocket requests, so those
// fall back to the access_token query parameter.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return strings.TrimSpace(c.Query("access_token"))
}
