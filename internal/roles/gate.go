package roles

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
)

// Permissions is what one visitor may do on one memorial at one moment.
type Permissions struct {
	MemorialID    string `json:"memorialId"`
	UID           string `json:"uid,omitempty"`
	Role          Role   `json:"role"`
	Authenticated bool   `json:"authenticated"`
	CanModerate   bool   `json:"canModerate"`
	CanPromote    bool   `json:"canPromote"`
	IsBlocked     bool   `json:"isBlocked"`
}

// AllowInteract guards comment, reaction and candle writes. A block vetoes
// them whatever the role.
func (p Permissions) AllowInteract() error {
	if !p.Authenticated {
		return ErrUnauthenticated
	}
	if p.IsBlocked {
		return ErrBlocked
	}
	return nil
}

// AllowModerate guards hide/unhide, block/unblock and report transitions.
// Moderation is not vetoed by a block on the moderator's own account.
func (p Permissions) AllowModerate() error {
	if !p.Authenticated {
		return ErrUnauthenticated
	}
	if !p.CanModerate {
		return ErrForbidden
	}
	return nil
}

func (p Permissions) AllowPromote() error {
	if !p.Authenticated {
		return ErrUnauthenticated
	}
	if !p.CanPromote {
		return ErrForbidden
	}
	return nil
}

func (p Permissions) AllowGlobalAdmin() error {
	if !p.Authenticated {
		return ErrUnauthenticated
	}
	if p.Role != RoleGlobalAdmin {
		return ErrForbidden
	}
	return nil
}

// Gate combines the resolved role with the memorial's block-list.
type Gate struct {
	resolver *Resolver
	store    docstore.Store
	log      zerolog.Logger
}

func NewGate(resolver *Resolver, store docstore.Store, log zerolog.Logger) *Gate {
	return &Gate{
		resolver: resolver,
		store:    store,
		log:      log.With().Str("component", "permission_gate").Logger(),
	}
}

// Evaluate resolves permissions for uid ("" for anonymous visitors).
func (g *Gate) Evaluate(ctx context.Context, memorialID, uid string) Permissions {
	p := Permissions{MemorialID: memorialID, UID: uid, Role: RoleNone}
	if uid == "" {
		return p
	}
	p.Authenticated = true

	p.Role = g.resolver.Resolve(ctx, memorialID, uid)
	p.CanModerate = p.Role.IsStaff()
	p.CanPromote = p.Role.IsAdmin()
	p.IsBlocked = g.isBlocked(ctx, memorialID, uid)
	return p
}

// isBlocked fails closed: an unreadable block-list counts as blocked.
// IsGlobalAdmin answers without a memorial, so there is no block-list to consult.
func (g *Gate) IsGlobalAdmin(ctx context.Context, uid string) bool {
	return g.resolver.IsGlobalAdmin(ctx, uid)
}

func (g *Gate) isBlocked(ctx context.Context, memorialID, uid string) bool {
	if !docstore.ValidID(memorialID) || !docstore.ValidID(uid) {
		return true
	}
	ok, err := g.store.Exists(ctx, docstore.BlockedPath(memorialID, uid))
	if err != nil {
		g.log.Warn().Err(err).
			Str("uid", uid).
			Str("memorial_id", memorialID).
			Msg("block lookup failed, treating as blocked")
		return true
	}
	return ok
}
