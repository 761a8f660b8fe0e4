package roles_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore/redisstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

type marker struct {
	Role string `json:"role,omitempty"`
}

func newStore(t *testing.T) docstore.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redisstore.New(client, "roles:", zerolog.Nop())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// failingStore denies every existence probe, like a store whose access rules
// reject the caller.
type failingStore struct {
	docstore.Store
}

func (failingStore) Exists(context.Context, string) (bool, error) {
	return false, docstore.ErrPermissionDenied
}

func put(t *testing.T, store docstore.Store, path string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), path, marker{}))
}

func TestResolver_GlobalAdminWinsEverywhere(t *testing.T) {
	store := newStore(t)
	put(t, store, docstore.AdminPath("ana"))
	put(t, store, docstore.ModPath("juan", "ana"))
	put(t, store, docstore.MemorialAdminPath("juan", "ana"))

	r := roles.NewResolver(store, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, roles.RoleGlobalAdmin, r.Resolve(ctx, "juan", "ana"))
	assert.Equal(t, roles.RoleGlobalAdmin, r.Resolve(ctx, "maria", "ana"))
	assert.True(t, r.IsGlobalAdmin(ctx, "ana"))

	gate := roles.NewGate(r, store, zerolog.Nop())
	assert.True(t, gate.IsGlobalAdmin(ctx, "ana"))
	assert.False(t, gate.IsGlobalAdmin(ctx, "luis"))
}

func TestResolver_MemorialAdminIsScoped(t *testing.T) {
	store := newStore(t)
	put(t, store, docstore.MemorialAdminPath("juan", "luis"))
	put(t, store, docstore.ModPath("juan", "luis"))

	r := roles.NewResolver(store, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, roles.RoleMemorialAdmin, r.Resolve(ctx, "juan", "luis"))
	assert.Equal(t, roles.RoleNone, r.Resolve(ctx, "maria", "luis"))
	assert.False(t, r.IsGlobalAdmin(ctx, "luis"))
}

func TestResolver_Tiers(t *testing.T) {
	store := newStore(t)
	put(t, store, docstore.ModPath("juan", "pepe"))

	r := roles.NewResolver(store, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name     string
		memorial string
		uid      string
		want     roles.Role
	}{
		{"moderator", "juan", "pepe", roles.RoleMod},
		{"moderator elsewhere", "maria", "pepe", roles.RoleNone},
		{"stranger", "juan", "nadie", roles.RoleNone},
		{"anonymous", "juan", "", roles.RoleNone},
		{"path injection", "juan", "pepe/../x", roles.RoleNone},
		{"bad memorial", "", "pepe", roles.RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(ctx, tt.memorial, tt.uid))
		})
	}
}

func TestResolver_FailsClosed(t *testing.T) {
	r := roles.NewResolver(failingStore{Store: newStore(t)}, zerolog.Nop())
	assert.Equal(t, roles.RoleNone, r.Resolve(context.Background(), "juan", "ana"))
}

func TestGate_Evaluate(t *testing.T) {
	store := newStore(t)
	put(t, store, docstore.AdminPath("ana"))
	put(t, store, docstore.MemorialAdminPath("juan", "luis"))
	put(t, store, docstore.ModPath("juan", "pepe"))

	gate := roles.NewGate(roles.NewResolver(store, zerolog.Nop()), store, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		uid         string
		canModerate bool
		canPromote  bool
	}{
		{"ana", true, true},
		{"luis", true, true},
		{"pepe", true, false},
		{"visitante", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			p := gate.Evaluate(ctx, "juan", tt.uid)
			assert.True(t, p.Authenticated)
			assert.Equal(t, tt.canModerate, p.CanModerate)
			assert.Equal(t, tt.canPromote, p.CanPromote)
			assert.False(t, p.IsBlocked)
			assert.NoError(t, p.AllowInteract())
		})
	}

	t.Run("anonymous", func(t *testing.T) {
		p := gate.Evaluate(ctx, "juan", "")
		assert.False(t, p.Authenticated)
		assert.Equal(t, roles.RoleNone, p.Role)
		assert.ErrorIs(t, p.AllowInteract(), roles.ErrUnauthenticated)
		assert.ErrorIs(t, p.AllowModerate(), roles.ErrUnauthenticated)
	})
}

func TestGate_BlockVetoesInteractionRegardlessOfRole(t *testing.T) {
	store := newStore(t)
	put(t, store, docstore.ModPath("juan", "pepe"))
	put(t, store, docstore.BlockedPath("juan", "pepe"))
	put(t, store, docstore.BlockedPath("juan", "troll"))

	gate := roles.NewGate(roles.NewResolver(store, zerolog.Nop()), store, zerolog.Nop())
	ctx := context.Background()

	for _, uid := range []string{"pepe", "troll"} {
		t.Run(uid, func(t *testing.T) {
			p := gate.Evaluate(ctx, "juan", uid)
			assert.True(t, p.IsBlocked)
			assert.True(t, errors.Is(p.AllowInteract(), roles.ErrBlocked))
		})
	}

	t.Run("moderation survives own block", func(t *testing.T) {
		p := gate.Evaluate(ctx, "juan", "pepe")
		assert.NoError(t, p.AllowModerate())
		assert.ErrorIs(t, p.AllowPromote(), roles.ErrForbidden)
	})

	t.Run("block is per memorial", func(t *testing.T) {
		p := gate.Evaluate(ctx, "maria", "troll")
		assert.False(t, p.IsBlocked)
		assert.NoError(t, p.AllowInteract())
	})
}

func TestGate_BlockLookupFailureCountsAsBlocked(t *testing.T) {
	store := failingStore{Store: newStore(t)}
	gate := roles.NewGate(roles.NewResolver(store, zerolog.Nop()), store, zerolog.Nop())

	p := gate.Evaluate(context.Background(), "juan", "ana")
	assert.Equal(t, roles.RoleNone, p.Role)
	assert.True(t, p.IsBlocked)
	assert.ErrorIs(t, p.AllowInteract(), roles.ErrBlocked)
}

func TestPermissions_Affordances(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		a := roles.Permissions{Role: roles.RoleNone}.Affordances()
		assert.True(t, a.ShowSignIn)
		assert.False(t, a.ComposerEnabled)
		assert.False(t, a.ShowModEntry)
		assert.False(t, a.ReportEnabled)
	})

	t.Run("blocked visitor", func(t *testing.T) {
		a := roles.Permissions{Role: roles.RoleNone, Authenticated: true, IsBlocked: true}.Affordances()
		assert.True(t, a.ShowBlockedBadge)
		assert.False(t, a.ComposerEnabled)
		assert.False(t, a.CandleEnabled)
		assert.True(t, a.ReportEnabled)
	})

	t.Run("moderator", func(t *testing.T) {
		a := roles.Permissions{Role: roles.RoleMod, Authenticated: true, CanModerate: true}.Affordances()
		assert.True(t, a.ShowModEntry)
		assert.True(t, a.ShowHiddenToggle)
		assert.False(t, a.ShowAdminTools)
		assert.True(t, a.ReactionsEnabled)
	})

	t.Run("admin", func(t *testing.T) {
		a := roles.Permissions{Role: roles.RoleMemorialAdmin, Authenticated: true, CanModerate: true, CanPromote: true}.Affordances()
		assert.True(t, a.ShowAdminTools)
		assert.True(t, a.ShowUIDRow)
	})
}
