package auth

import (
	"context"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"
	CtxUser        = "user"
)

// User is the signed-in visitor as asserted by a verified ID token.
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// TokenVerifier is satisfied by *firebase auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// SetUser stores u in the gin context under the keys handlers read.
func SetUser(c *gin.Context, u User) {
	c.Set(CtxFirebaseUID, u.UID)
	if u.Email != "" {
		c.Set(CtxEmail, u.Email)
	}
	c.Set(CtxUser, u)
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	if !ok || strings.TrimSpace(u.UID) == "" {
		return User{}, false
	}
	return u, true
}

// UserFirebaseUID extracts the Firebase UID from the Gin context.
// Empty for anonymous requests.
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}
