// Package service implements the memorial's social features: comments,
// reactions, candles, reports, staff management, visit stats and the live
// feeds behind them. Every write re-evaluates the permission gate for the
// acting user; nothing is trusted from an earlier render.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

const (
	DefaultCommentWindow = 50
	MaxCommentWindow     = 200
	QueueWindowPerPhoto  = 50
	ReportWindow         = 200
)

// Actor is the signed-in user performing an operation.
type Actor struct {
	UID  string
	Name string
}

type Options struct {
	CommentWindow int
	TrackStats    bool
}

type Deps struct {
	Store  docstore.Store
	Gate   *roles.Gate
	Audit  audit.Recorder
	Visits VisitDeduper
	Log    zerolog.Logger
	Now    func() time.Time
}

// Services bundles every service over one store and gate.
type Services struct {
	Comments   *CommentService
	Reactions  *ReactionService
	Candles    *CandleService
	Reports    *ReportService
	Moderation *ModerationService
	Stats      *StatsService
	Feeds      *Feeds
}

func New(deps Deps, opts Options) *Services {
	c := newCore(deps)
	window := clampWindow(opts.CommentWindow)

	comments := &CommentService{core: c, window: window, trackStats: opts.TrackStats}
	moderation := &ModerationService{core: c}
	return &Services{
		Comments:   comments,
		Reactions:  &ReactionService{core: c, trackStats: opts.TrackStats},
		Candles:    &CandleService{core: c},
		Reports:    &ReportService{core: c, comments: comments, moderation: moderation},
		Moderation: moderation,
		Stats:      &StatsService{core: c, visits: deps.Visits, trackStats: opts.TrackStats},
		Feeds:      &Feeds{core: c, window: window},
	}
}

type core struct {
	store docstore.Store
	gate  *roles.Gate
	audit audit.Recorder
	log   zerolog.Logger
	now   func() time.Time
}

func newCore(deps Deps) core {
	c := core{
		store: deps.Store,
		gate:  deps.Gate,
		audit: deps.Audit,
		log:   deps.Log.With().Str("component", "memorial_service").Logger(),
		now:   deps.Now,
	}
	if c.audit == nil {
		c.audit = audit.Nop{}
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

func (c core) permissions(ctx context.Context, memorialID string, actor Actor) roles.Permissions {
	return c.gate.Evaluate(ctx, memorialID, actor.UID)
}

func (c core) record(ctx context.Context, e audit.Entry) {
	e.CreatedAt = c.now()
	if err := c.audit.Record(ctx, e); err != nil {
		c.log.Warn().Err(err).
			Str("memorial_id", e.MemorialID).
			Str("action", string(e.Action)).
			Msg("audit record failed")
	}
}

// bump adjusts a stats counter outside any transaction; failures only log.
func (c core) bump(ctx context.Context, memorialID, field string, delta int64) {
	if err := c.store.Increment(ctx, docstore.StatsPath(memorialID), field, delta); err != nil {
		c.log.Warn().Err(err).
			Str("memorial_id", memorialID).
			Str("field", field).
			Msg("stats increment failed")
	}
}

func clampWindow(n int) int {
	if n <= 0 {
		return DefaultCommentWindow
	}
	if n > MaxCommentWindow {
		return MaxCommentWindow
	}
	return n
}

func checkMemorial(memorialID string) error {
	if !docstore.ValidID(memorialID) {
		return fmt.Errorf("%w: memorial id %q", domain.ErrInvalidInput, memorialID)
	}
	return nil
}

func checkPhoto(memorialID string, photo int) error {
	if err := checkMemorial(memorialID); err != nil {
		return err
	}
	if photo < 0 {
		return fmt.Errorf("%w: photo index %d", domain.ErrInvalidInput, photo)
	}
	return nil
}

func checkUID(uid string) error {
	if !docstore.ValidID(uid) {
		return fmt.Errorf("%w: uid %q", domain.ErrInvalidInput, uid)
	}
	return nil
}

// storeErr turns docstore.ErrNotFound into domain.ErrNotFound and wraps the rest.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if docstore.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
