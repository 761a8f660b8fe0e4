package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

func (a *app) roleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role <uid>",
		Short: "Show a user's role and block status on a memorial",
		Long: `Show the role a user resolves to. Without --memorial or --url only the
global admin probe runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := args[0]
			if err := checkUID(uid); err != nil {
				return err
			}

			memorialID := ""
			if a.flagMemorial != "" || a.flagURL != "" {
				id, err := a.memorialID()
				if err != nil {
					return err
				}
				memorialID = id
			}

			gate := roles.NewGate(roles.NewResolver(a.backend.Store, a.backend.Log), a.backend.Store, a.backend.Log)
			p := gate.Evaluate(cmd.Context(), memorialID, uid)
			if memorialID == "" {
				p.IsBlocked = false
			}

			out := cmd.OutOrStdout()
			if a.flagJSON {
				return writeJSON(out, p)
			}
			fmt.Fprintf(out, "uid:      %s\n", uid)
			if memorialID != "" {
				fmt.Fprintf(out, "memorial: %s\n", memorialID)
			}
			fmt.Fprintf(out, "role:     %s\n", p.Role)
			if memorialID != "" {
				fmt.Fprintf(out, "blocked:  %t\n", p.IsBlocked)
			}
			return nil
		},
	}
}

func (a *app) grantGlobalAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-global-admin <uid>",
		Short: "Make a user admin of every memorial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := args[0]
			if err := checkUID(uid); err != nil {
				return err
			}
			grant := domain.Grant{GrantedBy: a.flagActor, GrantedAt: a.now()}
			if err := a.backend.Store.Set(cmd.Context(), docstore.AdminPath(uid), grant); err != nil {
				return fmt.Errorf("granting global admin: %w", err)
			}
			a.record(cmd.Context(), audit.Entry{MemorialID: audit.GlobalScope, Action: audit.ActionGrantGlobalAdmin, TargetUID: uid})
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now a global admin\n", uid)
			return nil
		},
	}
}

func (a *app) revokeGlobalAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-global-admin <uid>",
		Short: "Remove a user's global admin grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := args[0]
			if err := checkUID(uid); err != nil {
				return err
			}
			if err := a.backend.Store.Delete(cmd.Context(), docstore.AdminPath(uid)); err != nil {
				return fmt.Errorf("revoking global admin: %w", err)
			}
			a.record(cmd.Context(), audit.Entry{MemorialID: audit.GlobalScope, Action: audit.ActionRevokeGlobalAdmin, TargetUID: uid})
			fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer a global admin\n", uid)
			return nil
		},
	}
}

// memorialGrant builds the four memorial-scoped staff commands, which differ
// only in path, role and wording.
type memorialGrant struct {
	use    string
	short  string
	done   string
	revoke bool
	path   func(memorialID, uid string) string
	role   roles.Role
	action audit.Action
}

func (a *app) memorialGrantCmd(g memorialGrant) *cobra.Command {
	return &cobra.Command{
		Use:   g.use + " <uid>",
		Short: g.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := args[0]
			if err := checkUID(uid); err != nil {
				return err
			}
			memorialID, err := a.memorialID()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store := a.backend.Store
			path := g.path(memorialID, uid)

			if g.revoke {
				if err := store.Delete(ctx, path); err != nil {
					return fmt.Errorf("%s: %w", g.use, err)
				}
				if err := store.Delete(ctx, docstore.RolePath(memorialID, uid)); err != nil {
					a.backend.Log.Warn().Err(err).Str("uid", uid).Msg("roster delete failed")
				}
			} else {
				if err := store.Set(ctx, path, a.grantDoc(g.role)); err != nil {
					return fmt.Errorf("%s: %w", g.use, err)
				}
				entry := domain.RoleEntry{Role: string(g.role), GrantedBy: a.flagActor, GrantedAt: a.now()}
				if err := store.Set(ctx, docstore.RolePath(memorialID, uid), entry); err != nil {
					a.backend.Log.Warn().Err(err).Str("uid", uid).Msg("roster write failed")
				}
			}

			a.record(ctx, audit.Entry{MemorialID: memorialID, Action: g.action, TargetUID: uid})
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s\n", uid, g.done, memorialID)
			return nil
		},
	}
}

// grantDoc is the document the rules read: mods carry a role record,
// memorial admins a plain grant.
func (a *app) grantDoc(role roles.Role) interface{} {
	if role == roles.RoleMod {
		return domain.Moderator{Role: string(roles.RoleMod), CreatedBy: a.flagActor, CreatedAt: a.now()}
	}
	return domain.Grant{GrantedBy: a.flagActor, GrantedAt: a.now()}
}

func (a *app) grantAdminCmd() *cobra.Command {
	return a.memorialGrantCmd(memorialGrant{
		use:    "grant-admin",
		short:  "Make a user admin of one memorial",
		done:   "is now memorial admin",
		path:   docstore.MemorialAdminPath,
		role:   roles.RoleMemorialAdmin,
		action: audit.ActionGrantAdmin,
	})
}

func (a *app) revokeAdminCmd() *cobra.Command {
	return a.memorialGrantCmd(memorialGrant{
		use:    "revoke-admin",
		short:  "Remove a user's memorial admin grant",
		done:   "is no longer memorial admin",
		revoke: true,
		path:   docstore.MemorialAdminPath,
		role:   roles.RoleMemorialAdmin,
		action: audit.ActionRevokeAdmin,
	})
}

func (a *app) promoteCmd() *cobra.Command {
	return a.memorialGrantCmd(memorialGrant{
		use:    "promote",
		short:  "Make a user moderator of one memorial",
		done:   "is now moderator",
		path:   docstore.ModPath,
		role:   roles.RoleMod,
		action: audit.ActionPromote,
	})
}

func (a *app) demoteCmd() *cobra.Command {
	return a.memorialGrantCmd(memorialGrant{
		use:    "demote",
		short:  "Remove a user's moderator role",
		done:   "is no longer moderator",
		revoke: true,
		path:   docstore.ModPath,
		role:   roles.RoleMod,
		action: audit.ActionDemote,
	})
}
