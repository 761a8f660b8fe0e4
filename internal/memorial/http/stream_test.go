package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
)

// readEvents parses SSE frames off body and forwards "event/data" pairs.
func readEvents(body *bufio.Reader, out chan<- [2]string) {
	defer close(out)
	var name string
	for {
		line, err := body.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			out <- [2]string{name, strings.TrimPrefix(line, "data: ")}
		}
	}
}

func waitFor(t *testing.T, events <-chan [2]string, name string, match func(data string) bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed before %s event", name)
			if ev[0] == name && match(ev[1]) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", name)
		}
	}
}

func TestStreamPhoto(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/memorials/"+memorial+"/photos/0/stream?access_token=tok-visit", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan [2]string, 16)
	go readEvents(bufio.NewReader(resp.Body), events)

	waitFor(t, events, "comments", func(data string) bool { return data == "[]" })

	w, _ := f.do(t, http.MethodPost, "/photos/0/comments", "tok-visit2", `{"text":"Descansa en paz"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	waitFor(t, events, "comments", func(data string) bool { return strings.Contains(data, "Descansa en paz") })

	w, _ = f.do(t, http.MethodPost, "/photos/0/reactions", "tok-visit", `{"emoji":"love"}`)
	require.Equal(t, http.StatusOK, w.Code)
	waitFor(t, events, "reactions", func(data string) bool {
		var sum struct {
			Totals map[string]int64 `json:"totals"`
			Mine   map[string]bool  `json:"mine"`
		}
		return json.Unmarshal([]byte(data), &sum) == nil && sum.Totals["love"] == 1 && sum.Mine["love"]
	})

	require.Len(t, f.registry.Active(), 2)

	cancel()
	require.Eventually(t, func() bool { return len(f.registry.Active()) == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestStreamPhoto_BadPhoto(t *testing.T) {
	f := setup(t)
	w, _ := f.do(t, http.MethodGet, "/photos/-1/stream", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func dialSocket(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/memorials/" + memorial + "/ws"
	if token != "" {
		url += "?access_token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, match func(serverMessageJSON) bool) serverMessageJSON {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var m serverMessageJSON
		require.NoError(t, conn.ReadJSON(&m))
		if match(m) {
			return m
		}
	}
}

type serverMessageJSON struct {
	Type  string          `json:"type"`
	Kind  realtime.Kind   `json:"kind"`
	Photo *int            `json:"photo"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func TestSocket_CandleFeed(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dialSocket(t, srv, "tok-visit")
	require.NoError(t, conn.WriteJSON(clientMessage{Op: "open", Kind: realtime.KindCandles}))

	readMessage(t, conn, func(m serverMessageJSON) bool {
		return m.Type == "snapshot" && m.Kind == realtime.KindCandles && string(m.Data) == `{"count":0,"lit":false}`
	})

	w, _ := f.do(t, http.MethodPost, "/candles", "tok-visit", "")
	require.Equal(t, http.StatusOK, w.Code)

	readMessage(t, conn, func(m serverMessageJSON) bool {
		return m.Type == "snapshot" && string(m.Data) == `{"count":1,"lit":true}`
	})

	require.NoError(t, conn.WriteJSON(clientMessage{Op: "close", Kind: realtime.KindCandles}))
	readMessage(t, conn, func(m serverMessageJSON) bool { return m.Type == "closed" })
	assert.Empty(t, f.registry.Active())
}

func TestSocket_PhotoSwitchReplacesFeed(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dialSocket(t, srv, "")
	zero, one := 0, 1
	require.NoError(t, conn.WriteJSON(clientMessage{Op: "open", Kind: realtime.KindComments, Photo: &zero}))
	readMessage(t, conn, func(m serverMessageJSON) bool { return m.Type == "snapshot" && m.Photo != nil && *m.Photo == 0 })

	require.NoError(t, conn.WriteJSON(clientMessage{Op: "open", Kind: realtime.KindComments, Photo: &one}))
	readMessage(t, conn, func(m serverMessageJSON) bool { return m.Type == "snapshot" && m.Photo != nil && *m.Photo == 1 })

	active := f.registry.Active()
	require.Len(t, active, 1)
	assert.Equal(t, 1, active[0].Photo)

	w, _ := f.do(t, http.MethodPost, "/photos/1/comments", "tok-visit", `{"text":"foto dos"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	m := readMessage(t, conn, func(m serverMessageJSON) bool { return m.Type == "snapshot" && strings.Contains(string(m.Data), "foto dos") })
	assert.Equal(t, 1, *m.Photo)
}

func TestSocket_ModerationFeedsNeedModerator(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dialSocket(t, srv, "tok-visit")
	require.NoError(t, conn.WriteJSON(clientMessage{Op: "open", Kind: realtime.KindReports}))
	m := readMessage(t, conn, func(m serverMessageJSON) bool { return m.Type == "error" })
	assert.Equal(t, realtime.KindReports, m.Kind)
	assert.Equal(t, "insufficient permissions", m.Error)

	require.NoError(t, conn.WriteJSON(clientMessage{Op: "open", Kind: "gossip"}))
	m = readMessage(t, conn, func(m serverMessageJSON) bool { return m.Type == "error" })
	assert.Equal(t, "unknown feed kind", m.Error)

	modConn := dialSocket(t, srv, "tok-mod")
	require.NoError(t, modConn.WriteJSON(clientMessage{Op: "open", Kind: realtime.KindBlocked}))
	m = readMessage(t, modConn, func(m serverMessageJSON) bool { return m.Type == "snapshot" })
	assert.Contains(t, string(m.Data), "troll-1")
}

func TestSocket_DisconnectClosesSurface(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dialSocket(t, srv, "tok-visit")
	require.NoError(t, conn.WriteJSON(clientMessage{Op: "open", Kind: realtime.KindStats}))
	readMessage(t, conn, func(m serverMessageJSON) bool { return m.Type == "snapshot" })
	require.Len(t, f.registry.Active(), 1)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return len(f.registry.Active()) == 0 }, 3*time.Second, 20*time.Millisecond)
}
