package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmw "github.com/imprimeturecuerdo/memorial-backend/internal/auth/middleware"
	"github.com/imprimeturecuerdo/memorial-backend/internal/content"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore/redisstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

const memorial = "juan-perez"

const descriptor = `{
  "name": "Juan Pérez",
  "dates": "1940 - 2024",
  "gallery": ["a.jpg", {"src": "b.jpg", "caption": "En la playa"}],
  "anniversary": "05-01"
}`

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, token string) (*fbauth.Token, error) {
	uid, ok := f[token]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return &fbauth.Token{UID: uid, Claims: map[string]interface{}{"name": strings.ToUpper(uid)}}, nil
}

var tokens = fakeVerifier{
	"tok-global": "global-1",
	"tok-admin":  "admin-1",
	"tok-mod":    "mod-1",
	"tok-visit":  "visit-1",
	"tok-visit2": "visit-2",
	"tok-troll":  "troll-1",
}

type fixture struct {
	router   *gin.Engine
	store    docstore.Store
	registry *realtime.Registry
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redisstore.New(client, "http:", zerolog.Nop())
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, docstore.AdminPath("global-1"), domain.Grant{}))
	require.NoError(t, store.Set(ctx, docstore.MemorialAdminPath(memorial, "admin-1"), domain.Grant{}))
	require.NoError(t, store.Set(ctx, docstore.ModPath(memorial, "mod-1"), domain.Moderator{Role: "mod", CreatedBy: "admin-1"}))
	require.NoError(t, store.Set(ctx, docstore.BlockedPath(memorial, "troll-1"), domain.BlockedUser{BlockedBy: "mod-1"}))

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, memorial), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, memorial, "data.json"), []byte(descriptor), 0o644))

	gate := roles.NewGate(roles.NewResolver(store, zerolog.Nop()), store, zerolog.Nop())
	svc := service.New(service.Deps{
		Store:  store,
		Gate:   gate,
		Visits: service.NewRedisVisitDeduper(client, "http:"),
		Log:    zerolog.Nop(),
	}, service.Options{CommentWindow: 50, TrackStats: true})

	registry := realtime.NewRegistry(zerolog.Nop())
	t.Cleanup(registry.Shutdown)

	h := New(Deps{
		Services:       svc,
		Gate:           gate,
		Content:        content.NewFileSource(dir),
		Registry:       registry,
		AllowedOrigins: []string{"*"},
		Log:            zerolog.Nop(),
	})

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(authmw.OptionalFirebaseAuth(tokens, zerolog.Nop()))
	h.Register(api)

	return &fixture{router: r, store: store, registry: registry}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1/memorials/"+memorial+path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestGetMemorial(t *testing.T) {
	f := setup(t)

	w, body := f.do(t, http.MethodGet, "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := body["memorial"].(map[string]interface{})
	assert.Equal(t, "Juan Pérez", page["name"])
	assert.Len(t, page["gallery"], 2)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/memorials/nadie", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// interaction routes do not depend on the descriptor
	req = httptest.NewRequest(http.MethodGet, "/api/v1/memorials/nadie/candles", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetViewer(t *testing.T) {
	f := setup(t)

	tests := []struct {
		token    string
		role     string
		composer bool
		modEntry bool
		blocked  bool
	}{
		{"", "none", false, false, false},
		{"tok-visit", "none", true, false, false},
		{"tok-troll", "none", false, false, true},
		{"tok-mod", "mod", true, true, false},
		{"tok-admin", "memorial-admin", true, true, false},
		{"tok-global", "global-admin", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.token, func(t *testing.T) {
			w, body := f.do(t, http.MethodGet, "/me", tt.token, "")
			require.Equal(t, http.StatusOK, w.Code)
			perms := body["permissions"].(map[string]interface{})
			aff := body["affordances"].(map[string]interface{})
			assert.Equal(t, tt.role, perms["role"])
			assert.Equal(t, tt.composer, aff["composerEnabled"])
			assert.Equal(t, tt.modEntry, aff["showModEntry"])
			assert.Equal(t, tt.blocked, aff["showBlockedBadge"])
		})
	}
}

func TestComments_Flow(t *testing.T) {
	f := setup(t)

	w, _ := f.do(t, http.MethodPost, "/photos/0/comments", "", `{"text":"hola"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := f.do(t, http.MethodPost, "/photos/0/comments", "tok-troll", `{"text":"spam"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, true, body["blocked"])

	w, _ = f.do(t, http.MethodPost, "/photos/0/comments", "tok-visit", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/photos/x/comments", "tok-visit", `{"text":"hola"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = f.do(t, http.MethodPost, "/photos/0/comments", "tok-visit", `{"text":"Te extrañamos"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	comment := body["comment"].(map[string]interface{})
	id := comment["id"].(string)
	assert.Equal(t, "VISIT-1", comment["name"])

	w, _ = f.do(t, http.MethodPost, "/photos/0/comments/"+id+"/hide", "tok-visit", `{"hidden":true}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = f.do(t, http.MethodPost, "/photos/0/comments/"+id+"/toggle-hidden", "tok-mod", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["hidden"])

	_, body = f.do(t, http.MethodGet, "/photos/0/comments", "", "")
	assert.Len(t, body["comments"], 0)

	_, body = f.do(t, http.MethodGet, "/photos/0/comments", "tok-mod", "")
	require.Len(t, body["comments"], 1)
	assert.Equal(t, true, body["comments"].([]interface{})[0].(map[string]interface{})["hidden"])

	_, body = f.do(t, http.MethodGet, "/moderation/queue", "tok-mod", "")
	assert.Len(t, body["items"], 0)
	assert.Equal(t, float64(2), body["photoCount"])

	_, body = f.do(t, http.MethodGet, "/moderation/queue?showHidden=true", "tok-mod", "")
	assert.Len(t, body["items"], 1)

	w, _ = f.do(t, http.MethodGet, "/moderation/queue", "tok-visit", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = f.do(t, http.MethodPost, "/photos/0/comments/"+id+"/hide", "tok-mod", `{"hidden":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["hidden"])

	_, body = f.do(t, http.MethodGet, "/stats", "", "")
	assert.Equal(t, float64(1), body["stats"].(map[string]interface{})["comments"])
}

func TestReactionsAndCandles(t *testing.T) {
	f := setup(t)

	w, _ := f.do(t, http.MethodPost, "/photos/1/reactions", "tok-visit", `{"emoji":"smile"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := f.do(t, http.MethodPost, "/photos/1/reactions", "tok-visit", `{"emoji":"dove"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["active"])

	_, _ = f.do(t, http.MethodPost, "/photos/1/reactions", "tok-visit2", `{"emoji":"dove"}`)

	_, body = f.do(t, http.MethodGet, "/photos/1/reactions", "tok-visit", "")
	assert.Equal(t, float64(2), body["totals"].(map[string]interface{})["dove"])
	assert.Equal(t, true, body["mine"].(map[string]interface{})["dove"])

	w, _ = f.do(t, http.MethodPost, "/candles", "tok-troll", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = f.do(t, http.MethodPost, "/candles", "tok-visit", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["lit"])
	assert.Equal(t, float64(1), body["count"])

	_, body = f.do(t, http.MethodPost, "/candles", "tok-visit", "")
	assert.Equal(t, false, body["lit"])
	assert.Equal(t, float64(0), body["count"])
}

func TestReports_Flow(t *testing.T) {
	f := setup(t)

	_, body := f.do(t, http.MethodPost, "/photos/0/comments", "tok-visit2", `{"text":"comentario ofensivo"}`)
	commentID := body["comment"].(map[string]interface{})["id"].(string)

	w, body := f.do(t, http.MethodPost, "/reports", "tok-visit", `{"photoIndex":0,"commentId":"`+commentID+`","reason":"ofensivo"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	report := body["report"].(map[string]interface{})
	reportID := report["id"].(string)
	assert.Equal(t, "visit-2", report["commentAuthorUid"])

	w, _ = f.do(t, http.MethodGet, "/reports", "tok-visit", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodPost, "/reports/"+reportID+"/resolve", "tok-visit", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, body = f.do(t, http.MethodGet, "/reports?status=open", "tok-mod", "")
	assert.Len(t, body["reports"], 1)

	w, _ = f.do(t, http.MethodPost, "/reports/"+reportID+"/actions", "tok-mod", `{"action":"promote-author"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodPost, "/reports/"+reportID+"/actions", "tok-mod", `{"action":"shout"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/reports/"+reportID+"/actions", "tok-mod", `{"action":"block-author"}`)
	require.Equal(t, http.StatusOK, w.Code)

	_, body = f.do(t, http.MethodGet, "/me", "tok-visit2", "")
	assert.Equal(t, true, body["permissions"].(map[string]interface{})["isBlocked"])

	w, body = f.do(t, http.MethodPost, "/reports/"+reportID+"/dismiss", "tok-mod", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dismissed", body["report"].(map[string]interface{})["status"])

	w, _ = f.do(t, http.MethodPost, "/reports/"+reportID+"/resolve", "tok-mod", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStaffAndBlockList(t *testing.T) {
	f := setup(t)

	w, _ := f.do(t, http.MethodPost, "/mods", "tok-mod", `{"uid":"visit-1"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodPost, "/mods", "tok-admin", `{"uid":"visit-1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	_, body := f.do(t, http.MethodGet, "/me", "tok-visit", "")
	assert.Equal(t, "mod", body["permissions"].(map[string]interface{})["role"])

	_, body = f.do(t, http.MethodGet, "/staff", "tok-mod", "")
	assert.Len(t, body["mods"], 2)
	assert.Equal(t, []interface{}{"admin-1"}, body["admins"])

	w, _ = f.do(t, http.MethodDelete, "/mods/visit-1", "tok-admin", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = f.do(t, http.MethodPost, "/admins", "tok-admin", `{"uid":"visit-2"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodPost, "/admins", "tok-global", `{"uid":"visit-2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodDelete, "/blocked/troll-1", "tok-visit", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodDelete, "/blocked/troll-1", "tok-mod", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = f.do(t, http.MethodPost, "/blocked", "tok-mod", `{"uid":"mod-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "self-block")

	w, _ = f.do(t, http.MethodPost, "/blocked", "tok-mod", `{"uid":"visit-1","reason":"spam"}`)
	require.Equal(t, http.StatusOK, w.Code)

	_, body = f.do(t, http.MethodGet, "/blocked", "tok-mod", "")
	require.Len(t, body["blocked"], 1)
	assert.Equal(t, "visit-1", body["blocked"].([]interface{})[0].(map[string]interface{})["uid"])
}

func TestVisitsAndHistory(t *testing.T) {
	f := setup(t)

	w, body := f.do(t, http.MethodPost, "/visits", "", `{"deviceId":"device-a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["counted"])

	_, body = f.do(t, http.MethodPost, "/visits", "", `{"deviceId":"device-a"}`)
	assert.Equal(t, false, body["counted"])

	w, _ = f.do(t, http.MethodPost, "/visits", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, body = f.do(t, http.MethodGet, "/stats", "", "")
	assert.Equal(t, float64(1), body["stats"].(map[string]interface{})["visits"])

	w, _ = f.do(t, http.MethodGet, "/stats/history", "tok-visit", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = f.do(t, http.MethodGet, "/audit", "tok-mod", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["enabled"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{roles.ErrUnauthenticated, http.StatusUnauthorized},
		{roles.ErrBlocked, http.StatusForbidden},
		{roles.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{content.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnknownEmoji, http.StatusBadRequest},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{docstore.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _ := statusFor(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
