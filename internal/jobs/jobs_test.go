package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
)

type staticList []string

func (l staticList) List(context.Context) ([]string, error) { return l, nil }

type fakeStats map[string]domain.Stats

func (f fakeStats) Get(_ context.Context, id string) (domain.Stats, error) {
	st, ok := f[id]
	if !ok {
		return domain.Stats{}, errors.New("store unavailable")
	}
	return st, nil
}

func (f fakeStats) CandleCount(_ context.Context, id string) (int64, error) {
	return int64(len(id)), nil
}

type memSnapshots struct {
	mu    sync.Mutex
	saved []audit.StatsSnapshot
}

func (m *memSnapshots) Save(_ context.Context, s audit.StatsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return nil
}

func TestStatsSnapshotJob(t *testing.T) {
	out := &memSnapshots{}
	job := NewStatsSnapshotJob(
		staticList{"ana", "broken", "juan"},
		fakeStats{"ana": {Visits: 3, Comments: 1}, "juan": {Visits: 10, Reactions: 4}},
		out,
		zerolog.Nop(),
	)
	job.now = func() time.Time { return time.Date(2026, 5, 2, 0, 0, 5, 0, time.UTC) }

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	require.Len(t, out.saved, 2)
	assert.Equal(t, "ana", out.saved[0].MemorialID)
	assert.Equal(t, int64(3), out.saved[0].Visits)
	assert.Equal(t, int64(3), out.saved[0].Candles)
	assert.Equal(t, "juan", out.saved[1].MemorialID)
	assert.Equal(t, int64(4), out.saved[1].Reactions)
	assert.Equal(t, 2026, out.saved[1].Day.Year())
}

func TestStatsSnapshotJob_Empty(t *testing.T) {
	out := &memSnapshots{}
	job := NewStatsSnapshotJob(staticList{}, fakeStats{}, out, zerolog.Nop())
	assert.NoError(t, job.Run(context.Background()))
	assert.Empty(t, out.saved)
}

type countingJob struct {
	mu   sync.Mutex
	runs int
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return nil
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func TestScheduler(t *testing.T) {
	s := NewScheduler(zerolog.Nop(), time.Second)
	assert.Error(t, s.Add("every tuesday", &countingJob{}))

	job := &countingJob{}
	require.NoError(t, s.Add("* * * * * *", job))
	s.Start()
	require.Eventually(t, func() bool { return job.count() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
