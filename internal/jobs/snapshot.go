package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
)

type MemorialLister interface {
	List(ctx context.Context) ([]string, error)
}

type StatsReader interface {
	Get(ctx context.Context, memorialID string) (domain.Stats, error)
	CandleCount(ctx context.Context, memorialID string) (int64, error)
}

type SnapshotWriter interface {
	Save(ctx context.Context, s audit.StatsSnapshot) error
}

// StatsSnapshotJob copies every memorial's counters into stats_snapshots.
// One failing memorial does not stop the others.
type StatsSnapshotJob struct {
	memorials MemorialLister
	stats     StatsReader
	out       SnapshotWriter
	log       zerolog.Logger
	now       func() time.Time
}

func NewStatsSnapshotJob(memorials MemorialLister, stats StatsReader, out SnapshotWriter, log zerolog.Logger) *StatsSnapshotJob {
	return &StatsSnapshotJob{
		memorials: memorials,
		stats:     stats,
		out:       out,
		log:       log.With().Str("job", "stats_snapshot").Logger(),
		now:       time.Now,
	}
}

func (j *StatsSnapshotJob) Name() string { return "stats_snapshot" }

func (j *StatsSnapshotJob) Run(ctx context.Context) error {
	ids, err := j.memorials.List(ctx)
	if err != nil {
		return fmt.Errorf("list memorials: %w", err)
	}

	day := j.now().UTC()
	var errs []error
	saved := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := j.snapshot(ctx, id, day); err != nil {
			j.log.Warn().Err(err).Str("memorial_id", id).Msg("snapshot failed")
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		saved++
	}

	j.log.Info().Int("memorials", len(ids)).Int("saved", saved).Msg("snapshots written")
	return errors.Join(errs...)
}

func (j *StatsSnapshotJob) snapshot(ctx context.Context, id string, day time.Time) error {
	st, err := j.stats.Get(ctx, id)
	if err != nil {
		return err
	}
	candles, err := j.stats.CandleCount(ctx, id)
	if err != nil {
		return err
	}
	return j.out.Save(ctx, audit.StatsSnapshot{
		MemorialID: id,
		Day:        day,
		Visits:     st.Visits,
		Comments:   st.Comments,
		Reactions:  st.Reactions,
		Candles:    candles,
	})
}
