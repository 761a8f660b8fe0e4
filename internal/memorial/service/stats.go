package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
)

// VisitDeduper answers whether this is a device's first visit of the day.
type VisitDeduper interface {
	FirstVisit(ctx context.Context, memorialID, deviceID string, day time.Time) (bool, error)
}

// RedisVisitDeduper keeps one SETNX key per memorial, device and UTC day.
type RedisVisitDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisVisitDeduper(client *redis.Client, prefix string) *RedisVisitDeduper {
	return &RedisVisitDeduper{client: client, prefix: prefix, ttl: 36 * time.Hour}
}

func (d *RedisVisitDeduper) FirstVisit(ctx context.Context, memorialID, deviceID string, day time.Time) (bool, error) {
	key := fmt.Sprintf("%svisit:%s:%s:%s", d.prefix, memorialID, deviceID, day.UTC().Format("2006-01-02"))
	ok, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("visit dedupe: %w", err)
	}
	return ok, nil
}

type StatsService struct {
	core
	visits     VisitDeduper
	trackStats bool
}

// RecordVisit counts a device once per day. It reports whether the visit
// was counted; dedupe failures skip the count rather than inflate it.
func (s *StatsService) RecordVisit(ctx context.Context, memorialID, deviceID string) (bool, error) {
	if err := checkMemorial(memorialID); err != nil {
		return false, err
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" || len(deviceID) > 128 {
		return false, fmt.Errorf("%w: device id", domain.ErrInvalidInput)
	}
	if !s.trackStats {
		return false, nil
	}

	if s.visits != nil {
		first, err := s.visits.FirstVisit(ctx, memorialID, deviceID, s.now())
		if err != nil {
			s.log.Warn().Err(err).Str("memorial_id", memorialID).Msg("visit dedupe failed, not counting")
			return false, nil
		}
		if !first {
			return false, nil
		}
	}

	if err := s.store.Increment(ctx, docstore.StatsPath(memorialID), domain.StatVisits, 1); err != nil {
		return false, storeErr("record visit", err)
	}
	return true, nil
}

// Get returns the counters; a memorial with no stats document reads as zero.
func (s *StatsService) Get(ctx context.Context, memorialID string) (domain.Stats, error) {
	if err := checkMemorial(memorialID); err != nil {
		return domain.Stats{}, err
	}

	var st domain.Stats
	err := s.store.Get(ctx, docstore.StatsPath(memorialID), &st)
	if docstore.IsNotFound(err) {
		return domain.Stats{}, nil
	}
	if err != nil {
		return domain.Stats{}, storeErr("get stats", err)
	}
	return st, nil
}

// CandleCount is used by the nightly snapshot.
func (s *StatsService) CandleCount(ctx context.Context, memorialID string) (int64, error) {
	if err := checkMemorial(memorialID); err != nil {
		return 0, err
	}
	n, err := s.store.Count(ctx, docstore.CandlesCollection(memorialID))
	if err != nil {
		return 0, storeErr("count candles", err)
	}
	return n, nil
}
