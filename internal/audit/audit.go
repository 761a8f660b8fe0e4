// Package audit keeps the moderation history and daily stats snapshots in
// Postgres. The document store stays the source of truth; these tables are
// an append-only trail for staff.
package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionHideComment       Action = "comment.hide"
	ActionUnhideComment     Action = "comment.unhide"
	ActionBlock             Action = "user.block"
	ActionUnblock           Action = "user.unblock"
	ActionPromote           Action = "mod.promote"
	ActionDemote            Action = "mod.demote"
	ActionResolveReport     Action = "report.resolve"
	ActionDismissReport     Action = "report.dismiss"
	ActionGrantAdmin        Action = "admin.grant"
	ActionRevokeAdmin       Action = "admin.revoke"
	ActionGrantGlobalAdmin  Action = "global_admin.grant"
	ActionRevokeGlobalAdmin Action = "global_admin.revoke"
)

// GlobalScope is the memorial id recorded for grants that are not scoped to
// one memorial.
const GlobalScope = "*"

type Entry struct {
	ID         string    `json:"id"`
	MemorialID string    `json:"memorialId"`
	ActorUID   string    `json:"actorUid"`
	Action     Action    `json:"action"`
	TargetUID  string    `json:"targetUid,omitempty"`
	Target     string    `json:"target,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Recorder appends one entry. Callers log failures and carry on.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
