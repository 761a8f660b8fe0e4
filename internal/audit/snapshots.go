package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type StatsSnapshot struct {
	MemorialID string    `json:"memorialId"`
	Day        time.Time `json:"day"`
	Visits     int64     `json:"visits"`
	Comments   int64     `json:"comments"`
	Reactions  int64     `json:"reactions"`
	Candles    int64     `json:"candles"`
}

// StatsSnapshotRepository keeps one row per memorial per day.
type StatsSnapshotRepository struct {
	db *sql.DB
}

func NewStatsSnapshotRepository(db *sql.DB) *StatsSnapshotRepository {
	return &StatsSnapshotRepository{db: db}
}

// Save upserts the snapshot; running the job twice on one day overwrites.
func (r *StatsSnapshotRepository) Save(ctx context.Context, s StatsSnapshot) error {
	query := `
		INSERT INTO stats_snapshots (memorial_id, day, visits, comments, reactions, candles)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (memorial_id, day) DO UPDATE SET
			visits = EXCLUDED.visits,
			comments = EXCLUDED.comments,
			reactions = EXCLUDED.reactions,
			candles = EXCLUDED.candles,
			taken_at = NOW()
	`

	day := s.Day.UTC().Truncate(24 * time.Hour)
	_, err := r.db.ExecContext(ctx, query, s.MemorialID, day, s.Visits, s.Comments, s.Reactions, s.Candles)
	if err != nil {
		return fmt.Errorf("failed to save stats snapshot: %w", err)
	}
	return nil
}

func (r *StatsSnapshotRepository) ListByMemorial(ctx context.Context, memorialID string, days int) ([]StatsSnapshot, error) {
	if days <= 0 {
		days = 30
	}

	query := `
		SELECT memorial_id, day, visits, comments, reactions, candles
		FROM stats_snapshots
		WHERE memorial_id = $1
		ORDER BY day DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, memorialID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats snapshots: %w", err)
	}
	defer rows.Close()

	out := []StatsSnapshot{}
	for rows.Next() {
		var s StatsSnapshot
		if err := rows.Scan(&s.MemorialID, &s.Day, &s.Visits, &s.Comments, &s.Reactions, &s.Candles); err != nil {
			return nil, fmt.Errorf("failed to scan stats snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
