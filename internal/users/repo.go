package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("visitor not found")

// Visitor is a signed-in person who has opened at least one memorial.
type Visitor struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

type UpsertVisitor struct {
	UID         string
	Email       string
	DisplayName string
	MemorialID  string
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct {
	db querier
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) EnsureVisitor(ctx context.Context, u UpsertVisitor) (Visitor, error) {
	if u.UID == "" {
		return Visitor{}, fmt.Errorf("uid required")
	}

	const q = `
insert into visitors (uid, email, display_name, last_memorial_id, first_seen_at, last_seen_at)
values ($1, nullif($2,''), nullif($3,''), nullif($4,''), now(), now())
on conflict (uid) do update
set
  email = coalesce(excluded.email, visitors.email),
  display_name = coalesce(excluded.display_name, visitors.display_name),
  last_memorial_id = coalesce(excluded.last_memorial_id, visitors.last_memorial_id),
  last_seen_at = now()
returning uid, coalesce(email,''), coalesce(display_name,''), first_seen_at, last_seen_at;
`
	var v Visitor
	err := r.db.QueryRow(ctx, q, u.UID, u.Email, u.DisplayName, u.MemorialID).
		Scan(&v.UID, &v.Email, &v.DisplayName, &v.FirstSeenAt, &v.LastSeenAt)
	if err != nil {
		return Visitor{}, fmt.Errorf("ensure visitor: %w", err)
	}
	return v, nil
}

func (r *Repo) Get(ctx context.Context, uid string) (Visitor, error) {
	const q = `
select uid, coalesce(email,''), coalesce(display_name,''), first_seen_at, last_seen_at
from visitors
where uid = $1;
`
	var v Visitor
	err := r.db.QueryRow(ctx, q, uid).
		Scan(&v.UID, &v.Email, &v.DisplayName, &v.FirstSeenAt, &v.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Visitor{}, ErrNotFound
	}
	if err != nil {
		return Visitor{}, fmt.Errorf("get visitor: %w", err)
	}
	return v, nil
}
