package service

import (
	"context"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
)

type CandleService struct {
	core
}

type CandleSummary struct {
	Count int64 `json:"count"`
	Lit   bool  `json:"lit"`
}

// Toggle lights the actor's candle or puts it out; it returns whether the
// candle is lit afterwards. Candles never expire.
func (s *CandleService) Toggle(ctx context.Context, memorialID string, actor Actor) (bool, error) {
	if err := checkMemorial(memorialID); err != nil {
		return false, err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowInteract(); err != nil {
		return false, err
	}

	path := docstore.CandlePath(memorialID, actor.UID)
	var lit bool

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		exists, err := tx.Exists(path)
		if err != nil {
			return err
		}
		if exists {
			lit = false
			return tx.Delete(path)
		}

		c := domain.Candle{
			UID:       actor.UID,
			Name:      domain.DisplayName(actor.Name),
			CreatedAt: s.now(),
		}
		if err := c.Validate(); err != nil {
			return err
		}
		lit = true
		return tx.Set(path, c)
	})
	if err != nil {
		return false, storeErr("toggle candle", err)
	}
	return lit, nil
}

func (s *CandleService) Summary(ctx context.Context, memorialID, viewerUID string) (*CandleSummary, error) {
	if err := checkMemorial(memorialID); err != nil {
		return nil, err
	}

	n, err := s.store.Count(ctx, docstore.CandlesCollection(memorialID))
	if err != nil {
		return nil, storeErr("count candles", err)
	}
	sum := &CandleSummary{Count: n}

	if docstore.ValidID(viewerUID) {
		lit, err := s.store.Exists(ctx, docstore.CandlePath(memorialID, viewerUID))
		if err != nil {
			return nil, storeErr("candle lookup", err)
		}
		sum.Lit = lit
	}
	return sum, nil
}
