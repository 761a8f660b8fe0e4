package http

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/users"
)

// VisitorDirectory is the optional Postgres record of signed-in visitors.
type VisitorDirectory interface {
	EnsureVisitor(ctx context.Context, u users.UpsertVisitor) (users.Visitor, error)
	Get(ctx context.Context, uid string) (users.Visitor, error)
}

// AdminChecker answers the unscoped global admin question.
type AdminChecker interface {
	IsGlobalAdmin(ctx context.Context, uid string) bool
}

type Handler struct {
	visitors VisitorDirectory
	admins   AdminChecker
	log      zerolog.Logger
}

// New builds the identity handlers. visitors may be nil when no database is
// configured; profile calls then answer from the token alone. A nil admins
// denies the admin panel to everyone.
func New(visitors VisitorDirectory, admins AdminChecker, log zerolog.Logger) *Handler {
	return &Handler{
		visitors: visitors,
		admins:   admins,
		log:      log.With().Str("component", "auth_http").Logger(),
	}
}
