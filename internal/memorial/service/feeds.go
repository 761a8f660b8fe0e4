package service

import (
	"context"
	"fmt"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

// Feeds builds live listeners. Each one decodes and filters snapshots the
// same way the matching read endpoint does, then hands the result to emit.
type Feeds struct {
	core
	window int
}

// Payload is what a feed emits: one of []domain.Comment, ReactionSummary,
// CandleSummary, domain.Stats, []domain.Report or []domain.BlockedUser.
type Payload interface{}

// For returns the listener for key as seen by a viewer with perms. Reports
// and block-list feeds need moderation rights. Feeds opened with moderation
// rights re-check them on every snapshot: a comments feed falls back to the
// visitor view and a moderation feed ends with roles.ErrForbidden.
func (f *Feeds) For(key realtime.Key, perms roles.Permissions, emit func(Payload)) (realtime.RunFunc, error) {
	if err := checkMemorial(key.Memorial); err != nil {
		return nil, err
	}
	if key.Kind.PhotoScoped() && key.Photo < 0 {
		return nil, fmt.Errorf("%w: photo index %d", domain.ErrInvalidInput, key.Photo)
	}

	m := key.Memorial
	switch key.Kind {
	case realtime.KindComments:
		collection := docstore.CommentsCollection(m, key.Photo)
		q := docstore.Query{OrderBy: "createdAt", Desc: true, Limit: f.window}
		if !perms.CanModerate {
			return f.listen(collection, q, func(snaps []docstore.Snapshot) {
				emit(VisibleComments(decodeComments(snaps, f.log), false))
			}), nil
		}
		return func(ctx context.Context) error {
			return f.listen(collection, q, func(snaps []docstore.Snapshot) {
				canModerate := f.permissions(ctx, m, Actor{UID: perms.UID}).CanModerate
				emit(VisibleComments(decodeComments(snaps, f.log), canModerate))
			})(ctx)
		}, nil

	case realtime.KindReactions:
		return f.listen(docstore.ReactionsCollection(m, key.Photo), docstore.Query{}, func(snaps []docstore.Snapshot) {
			emit(SummarizeReactions(decodeReactions(snaps, f.log), perms.UID))
		}), nil

	case realtime.KindCandles:
		return f.listen(docstore.CandlesCollection(m), docstore.Query{}, func(snaps []docstore.Snapshot) {
			sum := CandleSummary{Count: int64(len(snaps))}
			for _, snap := range snaps {
				if perms.UID != "" && snap.ID == perms.UID {
					sum.Lit = true
				}
			}
			emit(sum)
		}), nil

	case realtime.KindStats:
		return f.listen(docstore.MetaCollection(m), docstore.Query{}, func(snaps []docstore.Snapshot) {
			var st domain.Stats
			for _, snap := range snaps {
				if snap.Path == docstore.StatsPath(m) {
					if err := snap.DataTo(&st); err != nil {
						f.log.Warn().Err(err).Str("path", snap.Path).Msg("skipping undecodable stats")
					}
				}
			}
			emit(st)
		}), nil

	case realtime.KindReports:
		if err := perms.AllowModerate(); err != nil {
			return nil, err
		}
		return f.moderated(m, perms.UID, docstore.ReportsCollection(m), docstore.Query{OrderBy: "createdAt", Desc: true, Limit: ReportWindow}, func(snaps []docstore.Snapshot) {
			emit(FilterReports(decodeReports(snaps, f.log), domain.ReportOpen))
		}), nil

	case realtime.KindBlocked:
		if err := perms.AllowModerate(); err != nil {
			return nil, err
		}
		return f.moderated(m, perms.UID, docstore.BlockedCollection(m), docstore.Query{OrderBy: "createdAt", Desc: true}, func(snaps []docstore.Snapshot) {
			emit(decodeBlocked(snaps, f.log))
		}), nil
	}

	return nil, fmt.Errorf("%w: feed kind %q", domain.ErrInvalidInput, key.Kind)
}

func (f *Feeds) listen(collection string, q docstore.Query, fn func([]docstore.Snapshot)) realtime.RunFunc {
	return realtime.ListenFunc(f.store, collection, q, fn)
}

// moderated stops the listener with the gate's verdict as soon as uid can no
// longer moderate memorialID; no snapshot reaches fn after that.
func (f *Feeds) moderated(memorialID, uid, collection string, q docstore.Query, fn func([]docstore.Snapshot)) realtime.RunFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var denied error
		err := f.listen(collection, q, func(snaps []docstore.Snapshot) {
			if denied != nil {
				return
			}
			if denied = f.permissions(ctx, memorialID, Actor{UID: uid}).AllowModerate(); denied != nil {
				cancel()
				return
			}
			fn(snaps)
		})(ctx)

		if denied != nil {
			return denied
		}
		return err
	}
}
