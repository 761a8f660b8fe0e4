package service

import (
	"context"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
)

type ReactionService struct {
	core
	trackStats bool
}

type ReactionSummary struct {
	Totals map[domain.Emoji]int64 `json:"totals"`
	Mine   map[domain.Emoji]bool  `json:"mine"`
}

type ToggleResult struct {
	Emoji  domain.Emoji `json:"emoji"`
	Active bool         `json:"active"`
	Delta  int64        `json:"delta"`
}

// Toggle flips one emoji for the actor on one photo. The reaction record and
// the memorial's reactions counter change in the same transaction.
func (s *ReactionService) Toggle(ctx context.Context, memorialID string, photo int, actor Actor, emoji string) (*ToggleResult, error) {
	if err := checkPhoto(memorialID, photo); err != nil {
		return nil, err
	}
	e, err := domain.ParseEmoji(emoji)
	if err != nil {
		return nil, err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowInteract(); err != nil {
		return nil, err
	}

	path := docstore.ReactionPath(memorialID, photo, actor.UID)
	var res ToggleResult

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		var r domain.Reaction
		if err := tx.Get(path, &r); err != nil && !docstore.IsNotFound(err) {
			return err
		}
		r.Counts = normalizeCounts(r.Counts)
		r.UID = actor.UID
		r.UpdatedAt = s.now()

		res = ToggleResult{Emoji: e}
		if r.Counts[e] == 1 {
			r.Counts[e] = 0
			res.Delta = -1
		} else {
			r.Counts[e] = 1
			res.Delta = 1
			res.Active = true
		}

		if err := r.Validate(); err != nil {
			return err
		}
		if err := tx.Set(path, r); err != nil {
			return err
		}
		if s.trackStats {
			return tx.Increment(docstore.StatsPath(memorialID), domain.StatReactions, res.Delta)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("toggle reaction", err)
	}
	return &res, nil
}

func (s *ReactionService) Summary(ctx context.Context, memorialID string, photo int, viewerUID string) (*ReactionSummary, error) {
	if err := checkPhoto(memorialID, photo); err != nil {
		return nil, err
	}

	snaps, err := s.store.List(ctx, docstore.ReactionsCollection(memorialID, photo), docstore.Query{})
	if err != nil {
		return nil, storeErr("list reactions", err)
	}
	sum := SummarizeReactions(decodeReactions(snaps, s.log), viewerUID)
	return &sum, nil
}

// SummarizeReactions sums per-user toggles into per-emoji totals. Every
// known emoji is present in Totals, zero or not.
func SummarizeReactions(list []domain.Reaction, viewerUID string) ReactionSummary {
	sum := ReactionSummary{
		Totals: make(map[domain.Emoji]int64, len(domain.Emojis)),
		Mine:   make(map[domain.Emoji]bool, len(domain.Emojis)),
	}
	for _, e := range domain.Emojis {
		sum.Totals[e] = 0
		sum.Mine[e] = false
	}

	for _, r := range list {
		counts := normalizeCounts(r.Counts)
		for e, n := range counts {
			sum.Totals[e] += n
			if viewerUID != "" && r.UID == viewerUID && n == 1 {
				sum.Mine[e] = true
			}
		}
	}
	return sum
}

// normalizeCounts drops unknown emoji and clamps values to 0 or 1.
func normalizeCounts(in map[domain.Emoji]int64) map[domain.Emoji]int64 {
	out := make(map[domain.Emoji]int64, len(domain.Emojis))
	for e, n := range in {
		if _, err := domain.ParseEmoji(string(e)); err != nil {
			continue
		}
		if n > 0 {
			out[e] = 1
		} else {
			out[e] = 0
		}
	}
	return out
}
