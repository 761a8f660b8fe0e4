package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/content"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

const keepAliveInterval = 15 * time.Second

// AuditLog is the read side of the moderation history.
type AuditLog interface {
	List(ctx context.Context, memorialID string, limit int) ([]audit.Entry, error)
}

// SnapshotLog is the read side of the daily stats history.
type SnapshotLog interface {
	ListByMemorial(ctx context.Context, memorialID string, days int) ([]audit.StatsSnapshot, error)
}

type Deps struct {
	Services *service.Services
	Gate     *roles.Gate
	Content  content.Source
	Registry *realtime.Registry
	// Audit and Snapshots are nil when no database is configured.
	Audit     AuditLog
	Snapshots SnapshotLog
	// WriteLimit guards every mutating route; nil means unlimited.
	WriteLimit     gin.HandlerFunc
	AllowedOrigins []string
	Log            zerolog.Logger
	Now            func() time.Time
}

type Handler struct {
	svc        *service.Services
	gate       *roles.Gate
	content    content.Source
	registry   *realtime.Registry
	audit      AuditLog
	snapshots  SnapshotLog
	writeLimit gin.HandlerFunc
	upgrader   websocket.Upgrader
	log        zerolog.Logger
	now        func() time.Time
}

func New(d Deps) *Handler {
	h := &Handler{
		svc:        d.Services,
		gate:       d.Gate,
		content:    d.Content,
		registry:   d.Registry,
		audit:      d.Audit,
		snapshots:  d.Snapshots,
		writeLimit: d.WriteLimit,
		log:        d.Log.With().Str("component", "memorial_http").Logger(),
		now:        d.Now,
	}
	if h.writeLimit == nil {
		h.writeLimit = func(c *gin.Context) { c.Next() }
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(d.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
