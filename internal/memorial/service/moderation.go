package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

// ModerationService manages the staff roster and the block-list.
type ModerationService struct {
	core
}

type Staff struct {
	Admins []string           `json:"admins"`
	Mods   []domain.Moderator `json:"mods"`
}

// Promote makes target a moderator. Only admins may promote.
func (s *ModerationService) Promote(ctx context.Context, memorialID string, actor Actor, targetUID string) error {
	if err := s.checkTarget(memorialID, targetUID); err != nil {
		return err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowPromote(); err != nil {
		return err
	}

	now := s.now()
	mod := domain.Moderator{Role: string(roles.RoleMod), CreatedBy: actor.UID, CreatedAt: now}
	if err := mod.Validate(); err != nil {
		return err
	}
	if err := s.store.Set(ctx, docstore.ModPath(memorialID, targetUID), mod); err != nil {
		return storeErr("promote", err)
	}
	s.writeRoster(ctx, memorialID, targetUID, roles.RoleMod, actor.UID)

	s.record(ctx, audit.Entry{MemorialID: memorialID, ActorUID: actor.UID, Action: audit.ActionPromote, TargetUID: targetUID})
	return nil
}

func (s *ModerationService) Demote(ctx context.Context, memorialID string, actor Actor, targetUID string) error {
	if err := s.checkTarget(memorialID, targetUID); err != nil {
		return err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowPromote(); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, docstore.ModPath(memorialID, targetUID)); err != nil {
		return storeErr("demote", err)
	}
	s.clearRoster(ctx, memorialID, targetUID)

	s.record(ctx, audit.Entry{MemorialID: memorialID, ActorUID: actor.UID, Action: audit.ActionDemote, TargetUID: targetUID})
	return nil
}

func (s *ModerationService) ListStaff(ctx context.Context, memorialID string, actor Actor) (*Staff, error) {
	if err := checkMemorial(memorialID); err != nil {
		return nil, err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return nil, err
	}

	adminSnaps, err := s.store.List(ctx, docstore.MemorialAdminsCollection(memorialID), docstore.Query{})
	if err != nil {
		return nil, storeErr("list admins", err)
	}
	modSnaps, err := s.store.List(ctx, docstore.ModsCollection(memorialID), docstore.Query{})
	if err != nil {
		return nil, storeErr("list mods", err)
	}

	staff := &Staff{Admins: make([]string, 0, len(adminSnaps)), Mods: decodeModerators(modSnaps, s.log)}
	for _, snap := range adminSnaps {
		staff.Admins = append(staff.Admins, snap.ID)
	}
	return staff, nil
}

// Block adds target to the memorial's block-list. Staff cannot block
// themselves.
func (s *ModerationService) Block(ctx context.Context, memorialID string, actor Actor, targetUID, reason string) error {
	if err := s.checkTarget(memorialID, targetUID); err != nil {
		return err
	}
	if targetUID == actor.UID {
		return fmt.Errorf("%w: cannot block yourself", domain.ErrInvalidInput)
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return err
	}

	b := domain.BlockedUser{
		Reason:    domain.TruncateRunes(strings.TrimSpace(reason), domain.MaxReasonRunes),
		BlockedBy: actor.UID,
		CreatedAt: s.now(),
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.store.Set(ctx, docstore.BlockedPath(memorialID, targetUID), b); err != nil {
		return storeErr("block", err)
	}

	s.record(ctx, audit.Entry{MemorialID: memorialID, ActorUID: actor.UID, Action: audit.ActionBlock, TargetUID: targetUID, Detail: b.Reason})
	return nil
}

func (s *ModerationService) Unblock(ctx context.Context, memorialID string, actor Actor, targetUID string) error {
	if err := s.checkTarget(memorialID, targetUID); err != nil {
		return err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, docstore.BlockedPath(memorialID, targetUID)); err != nil {
		return storeErr("unblock", err)
	}

	s.record(ctx, audit.Entry{MemorialID: memorialID, ActorUID: actor.UID, Action: audit.ActionUnblock, TargetUID: targetUID})
	return nil
}

func (s *ModerationService) ListBlocked(ctx context.Context, memorialID string, actor Actor) ([]domain.BlockedUser, error) {
	if err := checkMemorial(memorialID); err != nil {
		return nil, err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return nil, err
	}

	snaps, err := s.store.List(ctx, docstore.BlockedCollection(memorialID), docstore.Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, storeErr("list blocked", err)
	}
	return decodeBlocked(snaps, s.log), nil
}

// GrantMemorialAdmin is reserved to global admins.
func (s *ModerationService) GrantMemorialAdmin(ctx context.Context, memorialID string, actor Actor, targetUID string) error {
	if err := s.checkTarget(memorialID, targetUID); err != nil {
		return err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowGlobalAdmin(); err != nil {
		return err
	}

	grant := domain.Grant{GrantedBy: actor.UID, GrantedAt: s.now()}
	if err := s.store.Set(ctx, docstore.MemorialAdminPath(memorialID, targetUID), grant); err != nil {
		return storeErr("grant memorial admin", err)
	}
	s.writeRoster(ctx, memorialID, targetUID, roles.RoleMemorialAdmin, actor.UID)

	s.record(ctx, audit.Entry{MemorialID: memorialID, ActorUID: actor.UID, Action: audit.ActionGrantAdmin, TargetUID: targetUID})
	return nil
}

func (s *ModerationService) RevokeMemorialAdmin(ctx context.Context, memorialID string, actor Actor, targetUID string) error {
	if err := s.checkTarget(memorialID, targetUID); err != nil {
		return err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowGlobalAdmin(); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, docstore.MemorialAdminPath(memorialID, targetUID)); err != nil {
		return storeErr("revoke memorial admin", err)
	}
	s.clearRoster(ctx, memorialID, targetUID)

	s.record(ctx, audit.Entry{MemorialID: memorialID, ActorUID: actor.UID, Action: audit.ActionRevokeAdmin, TargetUID: targetUID})
	return nil
}

func (s *ModerationService) checkTarget(memorialID, targetUID string) error {
	if err := checkMemorial(memorialID); err != nil {
		return err
	}
	return checkUID(targetUID)
}

// The roster under roles/ is informational; a failed write only logs.
func (s *ModerationService) writeRoster(ctx context.Context, memorialID, uid string, role roles.Role, grantedBy string) {
	entry := domain.RoleEntry{Role: string(role), GrantedBy: grantedBy, GrantedAt: s.now()}
	if err := s.store.Set(ctx, docstore.RolePath(memorialID, uid), entry); err != nil {
		s.log.Warn().Err(err).Str("memorial_id", memorialID).Str("uid", uid).Msg("roster write failed")
	}
}

func (s *ModerationService) clearRoster(ctx context.Context, memorialID, uid string) {
	if err := s.store.Delete(ctx, docstore.RolePath(memorialID, uid)); err != nil {
		s.log.Warn().Err(err).Str("memorial_id", memorialID).Str("uid", uid).Msg("roster delete failed")
	}
}
