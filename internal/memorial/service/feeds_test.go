package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

func next(t *testing.T, ch <-chan service.Payload) service.Payload {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed")
		return nil
	}
}

func TestFeeds_CommentsAreFilteredPerViewer(t *testing.T) {
	f := setup(t, service.Options{})
	ctx := context.Background()

	c, err := f.svc.Comments.Post(ctx, memorial, 0, visitor, "visible")
	require.NoError(t, err)
	hidden, err := f.svc.Comments.Post(ctx, memorial, 0, visitor, "oculto")
	require.NoError(t, err)
	require.NoError(t, f.svc.Comments.SetHidden(ctx, memorial, 0, hidden.ID, mod, true))

	reg := realtime.NewRegistry(zerolog.Nop())
	defer reg.Shutdown()

	open := func(surface string, perms roles.Permissions) <-chan service.Payload {
		ch := make(chan service.Payload, 8)
		key := realtime.Key{Surface: surface, Memorial: memorial, Photo: 0, Kind: realtime.KindComments}
		run, err := f.svc.Feeds.For(key, perms, func(p service.Payload) { ch <- p })
		require.NoError(t, err)
		reg.Open(ctx, key, run)
		return ch
	}

	public := open("public", roles.Permissions{Role: roles.RoleNone})
	staff := open("staff", roles.Permissions{Role: roles.RoleMod, Authenticated: true, CanModerate: true, UID: mod.UID})

	got := next(t, public).([]domain.Comment)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)

	got = next(t, staff).([]domain.Comment)
	require.Len(t, got, 2)
	assert.True(t, got[0].Hidden)
}

func TestFeeds_CandlesAndStats(t *testing.T) {
	f := setup(t, service.Options{TrackStats: true})
	ctx := context.Background()
	perms := roles.Permissions{UID: visitor.UID, Authenticated: true, Role: roles.RoleNone}

	candles := make(chan service.Payload, 8)
	run, err := f.svc.Feeds.For(realtime.Key{Surface: "page", Memorial: memorial, Kind: realtime.KindCandles}, perms, func(p service.Payload) { candles <- p })
	require.NoError(t, err)
	sub := realtime.NewSubscription(realtime.Key{Surface: "page", Memorial: memorial, Kind: realtime.KindCandles}, run)
	sub.Start(ctx)
	defer sub.Cancel()

	assert.Equal(t, service.CandleSummary{}, next(t, candles))

	_, err = f.svc.Candles.Toggle(ctx, memorial, visitor)
	require.NoError(t, err)
	assert.Equal(t, service.CandleSummary{Count: 1, Lit: true}, next(t, candles))

	stats := make(chan service.Payload, 8)
	run, err = f.svc.Feeds.For(realtime.Key{Surface: "page", Memorial: memorial, Kind: realtime.KindStats}, perms, func(p service.Payload) { stats <- p })
	require.NoError(t, err)
	statsSub := realtime.NewSubscription(realtime.Key{Surface: "page", Memorial: memorial, Kind: realtime.KindStats}, run)
	statsSub.Start(ctx)
	defer statsSub.Cancel()

	assert.Equal(t, domain.Stats{}, next(t, stats))
	_, err = f.svc.Stats.RecordVisit(ctx, memorial, "device-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Visits: 1}, next(t, stats))
}

func TestFeeds_ModerationFeedsNeedModerator(t *testing.T) {
	f := setup(t, service.Options{})
	perms := roles.Permissions{UID: visitor.UID, Authenticated: true, Role: roles.RoleNone}

	for _, kind := range []realtime.Kind{realtime.KindReports, realtime.KindBlocked} {
		_, err := f.svc.Feeds.For(realtime.Key{Surface: "s", Memorial: memorial, Kind: kind}, perms, func(service.Payload) {})
		assert.ErrorIs(t, err, roles.ErrForbidden)
	}

	_, err := f.svc.Feeds.For(realtime.Key{Surface: "s", Memorial: memorial, Photo: -1, Kind: realtime.KindComments}, perms, func(service.Payload) {})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Feeds.For(realtime.Key{Surface: "s", Memorial: memorial, Kind: "likes"}, perms, func(service.Payload) {})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFeeds_DemotedModeratorLosesHiddenComments(t *testing.T) {
	f := setup(t, service.Options{})
	ctx := context.Background()

	hidden, err := f.svc.Comments.Post(ctx, memorial, 0, visitor, "oculto")
	require.NoError(t, err)
	require.NoError(t, f.svc.Comments.SetHidden(ctx, memorial, 0, hidden.ID, mod, true))

	perms := roles.Permissions{Role: roles.RoleMod, Authenticated: true, CanModerate: true, UID: mod.UID}
	key := realtime.Key{Surface: "staff", Memorial: memorial, Photo: 0, Kind: realtime.KindComments}
	ch := make(chan service.Payload, 8)
	run, err := f.svc.Feeds.For(key, perms, func(p service.Payload) { ch <- p })
	require.NoError(t, err)
	sub := realtime.NewSubscription(key, run)
	sub.Start(ctx)
	defer sub.Cancel()

	require.Len(t, next(t, ch).([]domain.Comment), 1)

	require.NoError(t, f.svc.Moderation.Demote(ctx, memorial, admin, mod.UID))
	_, err = f.svc.Comments.Post(ctx, memorial, 0, visitor, "nuevo")
	require.NoError(t, err)

	got := next(t, ch).([]domain.Comment)
	require.Len(t, got, 1)
	assert.Equal(t, "nuevo", got[0].Text)
	assert.False(t, got[0].Hidden)
}

func TestFeeds_ModerationFeedEndsOnDemotion(t *testing.T) {
	f := setup(t, service.Options{})
	ctx := context.Background()

	perms := roles.Permissions{Role: roles.RoleMod, Authenticated: true, CanModerate: true, UID: mod.UID}
	key := realtime.Key{Surface: "panel", Memorial: memorial, Kind: realtime.KindBlocked}
	ch := make(chan service.Payload, 8)
	run, err := f.svc.Feeds.For(key, perms, func(p service.Payload) { ch <- p })
	require.NoError(t, err)
	sub := realtime.NewSubscription(key, run)
	sub.Start(ctx)
	defer sub.Cancel()

	require.Len(t, next(t, ch).([]domain.BlockedUser), 1)

	require.NoError(t, f.svc.Moderation.Demote(ctx, memorial, admin, mod.UID))
	require.NoError(t, f.svc.Moderation.Block(ctx, memorial, admin, "spammer-1", "spam"))

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("feed still running after demotion")
	}
	assert.ErrorIs(t, sub.Err(), roles.ErrForbidden)
	assert.Empty(t, ch)
}
