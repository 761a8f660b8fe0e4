package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidEntry = errors.New("audit entry needs memorial, actor and action")

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Repository stores entries in moderation_audit.
type Repository struct {
	db *sql.DB
}

var _ Recorder = (*Repository)(nil)

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Record(ctx context.Context, e Entry) error {
	if e.MemorialID == "" || e.ActorUID == "" || e.Action == "" {
		return ErrInvalidEntry
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	query := `
		INSERT INTO moderation_audit (id, memorial_id, actor_uid, action, target_uid, target, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, query,
		e.ID,
		e.MemorialID,
		e.ActorUID,
		string(e.Action),
		nullString(e.TargetUID),
		nullString(e.Target),
		nullString(e.Detail),
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// List returns a memorial's entries, newest first.
func (r *Repository) List(ctx context.Context, memorialID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, memorial_id, actor_uid, action, target_uid, target, detail, created_at
		FROM moderation_audit
		WHERE memorial_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, memorialID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var action string
		var targetUID, target, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.MemorialID, &e.ActorUID, &action, &targetUID, &target, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Action = Action(action)
		e.TargetUID = targetUID.String
		e.Target = target.String
		e.Detail = detail.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
