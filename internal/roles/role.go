// Package roles resolves a visitor's privilege tier on a memorial and derives
// the capabilities every surface checks before acting.
package roles

import "errors"

type Role string

// Tiers in priority order; the first probe that matches wins.
const (
	RoleGlobalAdmin   Role = "global-admin"
	RoleMemorialAdmin Role = "memorial-admin"
	RoleMod           Role = "mod"
	RoleNone          Role = "none"
)

var (
	ErrUnauthenticated = errors.New("sign in required")
	ErrForbidden       = errors.New("action not allowed for this role")
	ErrBlocked         = errors.New("user is blocked on this memorial")
)

func (r Role) IsAdmin() bool {
	return r == RoleGlobalAdmin || r == RoleMemorialAdmin
}

func (r Role) IsStaff() bool {
	return r.IsAdmin() || r == RoleMod
}

func (r Role) String() string { return string(r) }
