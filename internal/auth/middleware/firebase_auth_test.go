package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/imprimeturecuerdo/memorial-backend/internal/auth"
)

type fakeVerifier map[string]*fbauth.Token

func (f fakeVerifier) VerifyIDToken(_ context.Context, token string) (*fbauth.Token, error) {
	if t, ok := f[token]; ok {
		return t, nil
	}
	return nil, errors.New("token rejected")
}

var verifier = fakeVerifier{
	"good": {UID: "u1", Claims: map[string]interface{}{"name": " Ana ", "email": "ana@example.com"}},
}

func whoami(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"ok": ok, "uid": u.UID, "name": u.DisplayName, "email": u.Email})
}

func serve(r *gin.Engine, target, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", FirebaseAuthMiddleware(verifier), whoami)

	t.Run("missing token", func(t *testing.T) {
		w := serve(r, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "missing authorization token")
	})

	t.Run("invalid token", func(t *testing.T) {
		w := serve(r, "/me", "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid token")
	})

	t.Run("valid token", func(t *testing.T) {
		w := serve(r, "/me", "Bearer good")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"uid":"u1","name":"Ana","email":"ana@example.com"}`, w.Body.String())
	})

	t.Run("query token for event streams", func(t *testing.T) {
		w := serve(r, "/me?access_token=good", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOptionalFirebaseAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", OptionalFirebaseAuth(verifier, zerolog.Nop()), whoami)

	w := serve(r, "/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)

	w = serve(r, "/me", "Bearer expired")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)

	w = serve(r, "/me", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uid":"u1"`)
}
