package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

type ReportAction string

const (
	ActionHideComment   ReportAction = "hide-comment"
	ActionBlockAuthor   ReportAction = "block-author"
	ActionPromoteAuthor ReportAction = "promote-author"
)

type CreateReportInput struct {
	PhotoIndex int    `json:"photoIndex"`
	CommentID  string `json:"commentId"`
	Reason     string `json:"reason"`
}

type ReportService struct {
	core
	comments   *CommentService
	moderation *ModerationService
}

// Create files a report against a comment. Any signed-in visitor may report,
// blocked ones included; the comment author is copied from the comment.
// Hidden comments do not exist for reporters who cannot moderate, and the
// returned report only carries the comment text for moderators.
func (s *ReportService) Create(ctx context.Context, memorialID string, actor Actor, in CreateReportInput) (*domain.Report, error) {
	if err := checkPhoto(memorialID, in.PhotoIndex); err != nil {
		return nil, err
	}
	perms := s.permissions(ctx, memorialID, actor)
	if !perms.Authenticated {
		return nil, roles.ErrUnauthenticated
	}

	comment, err := s.comments.Get(ctx, memorialID, in.PhotoIndex, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.Hidden && !perms.CanModerate {
		return nil, fmt.Errorf("get comment: %w", domain.ErrNotFound)
	}

	r := domain.Report{
		ID:                uuid.New().String(),
		ReporterUID:       actor.UID,
		ReporterName:      domain.DisplayName(actor.Name),
		PhotoIndex:        in.PhotoIndex,
		CommentID:         in.CommentID,
		CommentAuthorUID:  comment.UID,
		CommentAuthorName: comment.Name,
		CommentText:       comment.Text,
		Reason:            domain.TruncateRunes(strings.TrimSpace(in.Reason), domain.MaxReasonRunes),
		Status:            domain.ReportOpen,
		CreatedAt:         s.now(),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, docstore.ReportPath(memorialID, r.ID), r); err != nil {
		return nil, storeErr("create report", err)
	}
	if !perms.CanModerate {
		r.CommentText = ""
	}
	return &r, nil
}

// List returns reports newest first, optionally filtered by status.
func (s *ReportService) List(ctx context.Context, memorialID string, actor Actor, status domain.ReportStatus) ([]domain.Report, error) {
	if err := checkMemorial(memorialID); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: report status %q", domain.ErrInvalidInput, status)
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return nil, err
	}

	snaps, err := s.store.List(ctx, docstore.ReportsCollection(memorialID), docstore.Query{OrderBy: "createdAt", Desc: true, Limit: ReportWindow})
	if err != nil {
		return nil, storeErr("list reports", err)
	}
	return FilterReports(decodeReports(snaps, s.log), status), nil
}

func (s *ReportService) Resolve(ctx context.Context, memorialID, reportID string, actor Actor) (*domain.Report, error) {
	return s.transition(ctx, memorialID, reportID, actor, domain.ReportResolved)
}

func (s *ReportService) Dismiss(ctx context.Context, memorialID, reportID string, actor Actor) (*domain.Report, error) {
	return s.transition(ctx, memorialID, reportID, actor, domain.ReportDismissed)
}

// transition moves an open report to a terminal state. The status check and
// the write happen in one transaction so two moderators cannot both close it.
func (s *ReportService) transition(ctx context.Context, memorialID, reportID string, actor Actor, to domain.ReportStatus) (*domain.Report, error) {
	if err := checkMemorial(memorialID); err != nil {
		return nil, err
	}
	if !docstore.ValidID(reportID) {
		return nil, fmt.Errorf("%w: report id %q", domain.ErrInvalidInput, reportID)
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return nil, err
	}

	path := docstore.ReportPath(memorialID, reportID)
	var out domain.Report

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		var r domain.Report
		if err := tx.Get(path, &r); err != nil {
			return err
		}
		if r.Status != domain.ReportOpen {
			return fmt.Errorf("%w: status is %s", domain.ErrInvalidTransition, r.Status)
		}

		now := s.now()
		r.Status = to
		r.ResolvedBy = actor.UID
		r.ResolvedAt = &now
		if err := r.Validate(); err != nil {
			return err
		}
		out = r
		return tx.Set(path, r)
	})
	if err != nil {
		return nil, storeErr("report "+string(to), err)
	}
	out.ID = reportID

	action := audit.ActionResolveReport
	if to == domain.ReportDismissed {
		action = audit.ActionDismissReport
	}
	s.record(ctx, audit.Entry{MemorialID: memorialID, ActorUID: actor.UID, Action: action, Target: path, TargetUID: out.CommentAuthorUID})
	return &out, nil
}

// ApplyAction runs one side action against the reported comment or its
// author. It never changes the report's own status.
func (s *ReportService) ApplyAction(ctx context.Context, memorialID, reportID string, actor Actor, action ReportAction) error {
	if err := checkMemorial(memorialID); err != nil {
		return err
	}
	if !docstore.ValidID(reportID) {
		return fmt.Errorf("%w: report id %q", domain.ErrInvalidInput, reportID)
	}
	switch action {
	case ActionHideComment, ActionBlockAuthor, ActionPromoteAuthor:
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownAction, action)
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return err
	}

	var r domain.Report
	if err := s.store.Get(ctx, docstore.ReportPath(memorialID, reportID), &r); err != nil {
		return storeErr("get report", err)
	}

	switch action {
	case ActionHideComment:
		return s.comments.SetHidden(ctx, memorialID, r.PhotoIndex, r.CommentID, actor, true)
	case ActionBlockAuthor:
		return s.moderation.Block(ctx, memorialID, actor, r.CommentAuthorUID, "report "+reportID)
	case ActionPromoteAuthor:
		return s.moderation.Promote(ctx, memorialID, actor, r.CommentAuthorUID)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownAction, action)
	}
}

func FilterReports(list []domain.Report, status domain.ReportStatus) []domain.Report {
	if status == "" {
		return list
	}
	out := make([]domain.Report, 0, len(list))
	for _, r := range list {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}
