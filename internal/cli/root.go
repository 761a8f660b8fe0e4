// Package cli is the memorialctl admin tool. It writes straight to the
// document store with service-account credentials, so no permission gate
// applies: whoever can run it is a global admin.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/content"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
)

// Backend is what a command runs against.
type Backend struct {
	Store docstore.Store
	Audit audit.Recorder
	Log   zerolog.Logger
	Close func()
}

// Opener connects lazily so --help works without credentials.
type Opener func(ctx context.Context) (*Backend, error)

type app struct {
	open Opener
	now  func() time.Time

	flagJSON     bool
	flagMemorial string
	flagURL      string
	flagActor    string

	backend *Backend
}

func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open, now: time.Now}

	root := &cobra.Command{
		Use:   "memorialctl",
		Short: "Manage memorial staff, block-lists and reports",
		Long: `memorialctl edits roles, block-lists and reports directly in the
document store.

  memorialctl role <uid> --memorial ana-garcia
  memorialctl promote <uid> --url https://example.org/memoriales/ana-garcia/
  memorialctl grant-global-admin <uid>
  memorialctl reports --memorial ana-garcia --status open`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return fmt.Errorf("connecting: %w", err)
			}
			if b.Audit == nil {
				b.Audit = audit.Nop{}
			}
			a.backend = b
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.backend != nil && a.backend.Close != nil {
				a.backend.Close()
			}
		},
	}

	root.PersistentFlags().BoolVar(&a.flagJSON, "json", false, "Output as JSON")
	root.PersistentFlags().StringVarP(&a.flagMemorial, "memorial", "m", "", "Memorial id")
	root.PersistentFlags().StringVar(&a.flagURL, "url", "", "Memorial page URL (alternative to --memorial)")
	root.PersistentFlags().StringVar(&a.flagActor, "actor", "memorialctl", "Name recorded as grantedBy/blockedBy")

	root.AddCommand(
		a.roleCmd(),
		a.grantGlobalAdminCmd(),
		a.revokeGlobalAdminCmd(),
		a.grantAdminCmd(),
		a.revokeAdminCmd(),
		a.promoteCmd(),
		a.demoteCmd(),
		a.blockCmd(),
		a.unblockCmd(),
		a.reportsCmd(),
	)
	return root
}

// Execute runs the root command and prints the error, if any, to stderr.
func Execute(root *cobra.Command) error {
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// memorialID takes --memorial, then --url.
func (a *app) memorialID() (string, error) {
	if a.flagMemorial != "" {
		if !docstore.ValidID(a.flagMemorial) {
			return "", fmt.Errorf("invalid memorial id %q", a.flagMemorial)
		}
		return a.flagMemorial, nil
	}
	if a.flagURL != "" {
		id, ok := content.MemorialIDFromURL(a.flagURL)
		if !ok {
			return "", fmt.Errorf("no memorial id in %q", a.flagURL)
		}
		return id, nil
	}
	return "", fmt.Errorf("--memorial or --url is required")
}

func (a *app) record(ctx context.Context, e audit.Entry) {
	e.ActorUID = a.flagActor
	e.CreatedAt = a.now()
	if err := a.backend.Audit.Record(ctx, e); err != nil {
		a.backend.Log.Warn().Err(err).Str("action", string(e.Action)).Msg("audit record failed")
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkUID(uid string) error {
	if !docstore.ValidID(uid) {
		return fmt.Errorf("invalid uid %q", uid)
	}
	return nil
}
