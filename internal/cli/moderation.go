package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
)

func (a *app) blockCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "block <uid>",
		Short: "Block a user from commenting, reacting and lighting candles",
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

			b := domain.BlockedUser{
				Reason:    domain.TruncateRunes(strings.TrimSpace(reason), domain.MaxReasonRunes),
				BlockedBy: a.flagActor,
				CreatedAt: a.now(),
			}
			if err := b.Validate(); err != nil {
				return err
			}
			if err := a.backend.Store.Set(cmd.Context(), docstore.BlockedPath(memorialID, uid), b); err != nil {
				return fmt.Errorf("blocking: %w", err)
			}
			a.record(cmd.Context(), audit.Entry{MemorialID: memorialID, Action: audit.ActionBlock, TargetUID: uid, Detail: b.Reason})
			fmt.Fprintf(cmd.OutOrStdout(), "%s blocked on %s\n", uid, memorialID)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to staff")
	return cmd
}

func (a *app) unblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <uid>",
		Short: "Lift a block",
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
			if err := a.backend.Store.Delete(cmd.Context(), docstore.BlockedPath(memorialID, uid)); err != nil {
				return fmt.Errorf("unblocking: %w", err)
			}
			a.record(cmd.Context(), audit.Entry{MemorialID: memorialID, Action: audit.ActionUnblock, TargetUID: uid})
			fmt.Fprintf(cmd.OutOrStdout(), "%s unblocked on %s\n", uid, memorialID)
			return nil
		},
	}
}

func (a *app) reportsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List reports filed on a memorial, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			memorialID, err := a.memorialID()
			if err != nil {
				return err
			}
			st := domain.ReportStatus(status)
			if st != "" && !st.Valid() {
				return fmt.Errorf("unknown status %q (open, resolved, dismissed)", status)
			}

			snaps, err := a.backend.Store.List(cmd.Context(), docstore.ReportsCollection(memorialID),
				docstore.Query{OrderBy: "createdAt", Desc: true, Limit: service.ReportWindow})
			if err != nil {
				return fmt.Errorf("listing reports: %w", err)
			}

			list := make([]domain.Report, 0, len(snaps))
			for _, snap := range snaps {
				var r domain.Report
				if err := snap.DataTo(&r); err != nil {
					a.backend.Log.Warn().Err(err).Str("path", snap.Path).Msg("skipping undecodable report")
					continue
				}
				r.ID = snap.ID
				list = append(list, r)
			}
			list = service.FilterReports(list, st)

			out := cmd.OutOrStdout()
			if a.flagJSON {
				return writeJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No reports found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPHOTO\tAUTHOR\tREPORTER\tREASON\tCREATED")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					r.ID, r.Status, r.PhotoIndex, r.CommentAuthorUID, r.ReporterUID, r.Reason,
					r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (open, resolved, dismissed)")
	return cmd
}
