package roles

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
)

// Resolver probes admins/{uid}, memorials/{id}/admin/{uid} and
// memorials/{id}/mods/{uid} in that order. Results are never cached: callers
// resolve again on every sign-in change, memorial switch or privileged action.
type Resolver struct {
	store docstore.Store
	log   zerolog.Logger
}

func NewResolver(store docstore.Store, log zerolog.Logger) *Resolver {
	return &Resolver{
		store: store,
		log:   log.With().Str("component", "role_resolver").Logger(),
	}
}

// Resolve never returns an error: a failed probe yields RoleNone.
func (r *Resolver) Resolve(ctx context.Context, memorialID, uid string) Role {
	if !docstore.ValidID(uid) {
		return RoleNone
	}

	if r.exists(ctx, docstore.AdminPath(uid), uid, memorialID) {
		return RoleGlobalAdmin
	}
	if !docstore.ValidID(memorialID) {
		return RoleNone
	}

	probes := []struct {
		path string
		role Role
	}{
		{docstore.MemorialAdminPath(memorialID, uid), RoleMemorialAdmin},
		{docstore.ModPath(memorialID, uid), RoleMod},
	}
	for _, p := range probes {
		if r.exists(ctx, p.path, uid, memorialID) {
			return p.role
		}
	}
	return RoleNone
}

// IsGlobalAdmin is the first probe on its own, for surfaces that are not
// scoped to a memorial (the admin panel landing page).
func (r *Resolver) IsGlobalAdmin(ctx context.Context, uid string) bool {
	if !docstore.ValidID(uid) {
		return false
	}
	return r.exists(ctx, docstore.AdminPath(uid), uid, "")
}

func (r *Resolver) exists(ctx context.Context, path, uid, memorialID string) bool {
	ok, err := r.store.Exists(ctx, path)
	if err != nil {
		r.log.Warn().Err(err).
			Str("uid", uid).
			Str("memorial_id", memorialID).
			Str("path", path).
			Msg("role probe failed, treating as no role")
		return false
	}
	return ok
}
