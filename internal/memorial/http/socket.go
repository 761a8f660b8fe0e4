package http

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 4096
)

// clientMessage is what the page sends: open or close one feed kind. Opening
// a kind that is already open replaces it, e.g. when the viewer switches
// photos.
type clientMessage struct {
	Op    string        `json:"op"`
	Kind  realtime.Kind `json:"kind"`
	Photo *int          `json:"photo,omitempty"`
}

type serverMessage struct {
	Type  string          `json:"type"`
	Kind  realtime.Kind   `json:"kind,omitempty"`
	Photo *int            `json:"photo,omitempty"`
	Data  service.Payload `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Socket multiplexes every live feed a page needs over one WebSocket. The
// connection is one surface in the registry; closing it tears down all of
// its feeds.
func (h *Handler) Socket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &socket{
		h:       h,
		conn:    conn,
		surface: "ws:" + uuid.NewString(),
		memID:   memorialID(c),
		uid:     actor(c).UID,
		out:     make(chan serverMessage, 32),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.serve()
}

type socket struct {
	h       *Handler
	conn    *websocket.Conn
	surface string
	memID   string
	uid     string
	out     chan serverMessage
	ctx     context.Context
	cancel  context.CancelFunc
}

func (s *socket) serve() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	s.readLoop()

	s.cancel()
	s.h.registry.CloseSurface(s.surface)
	<-writerDone
	_ = s.conn.Close()
}

func (s *socket) readLoop() {
	s.conn.SetReadLimit(wsMaxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.h.log.Debug().Err(err).Str("surface", s.surface).Msg("websocket read ended")
			}
			return
		}
		s.handle(msg)
	}
}

func (s *socket) handle(msg clientMessage) {
	if !msg.Kind.Valid() {
		s.send(serverMessage{Type: "error", Kind: msg.Kind, Error: "unknown feed kind"})
		return
	}

	switch msg.Op {
	case "open":
		s.open(msg)
	case "close":
		s.h.registry.Close(s.surface, msg.Kind)
		s.send(serverMessage{Type: "closed", Kind: msg.Kind})
	default:
		s.send(serverMessage{Type: "error", Kind: msg.Kind, Error: "unknown op"})
	}
}

func (s *socket) open(msg clientMessage) {
	photo := -1
	if msg.Kind.PhotoScoped() {
		if msg.Photo == nil {
			s.send(serverMessage{Type: "error", Kind: msg.Kind, Error: "photo is required"})
			return
		}
		photo = *msg.Photo
	}

	// moderator feeds re-check the gate on every snapshot
	perms := s.h.gate.Evaluate(s.ctx, s.memID, s.uid)
	key := realtime.Key{Surface: s.surface, Memorial: s.memID, Photo: photo, Kind: msg.Kind}

	run, err := s.h.svc.Feeds.For(key, perms, func(p service.Payload) {
		s.send(serverMessage{Type: "snapshot", Kind: key.Kind, Photo: msg.Photo, Data: p})
	})
	if err != nil {
		_, text := statusFor(err)
		s.send(serverMessage{Type: "error", Kind: msg.Kind, Photo: msg.Photo, Error: text})
		return
	}

	sub := s.h.registry.Open(s.ctx, key, run)
	go func() {
		<-sub.Done()
		if err := sub.Err(); err != nil {
			s.h.log.Warn().Err(err).Str("key", key.String()).Msg("feed failed")
			s.send(serverMessage{Type: "error", Kind: key.Kind, Photo: msg.Photo, Error: "feed interrupted"})
		}
	}()
}

// send queues a message for the writer; it gives up once the socket closes.
func (s *socket) send(m serverMessage) {
	select {
	case s.out <- m:
	case <-s.ctx.Done():
	}
}

func (s *socket) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return

		case m := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteJSON(m); err != nil {
				s.cancel()
				_ = s.conn.Close()
				return
			}

		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				s.cancel()
				_ = s.conn.Close()
				return
			}
		}
	}
}
