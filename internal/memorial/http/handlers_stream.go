package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
)

type streamEvent struct {
	name string
	data interface{}
}

// StreamPhoto streams the open photo's comments and reaction totals using
// Server-Sent Events. Each feed sends a full snapshot whenever it changes.
// Both feeds belong to one surface and end when the client disconnects.
func (h *Handler) StreamPhoto(c *gin.Context) {
	photo, ok := photoParam(c)
	if !ok {
		return
	}
	m := memorialID(c)

	ctx, cancel := context.WithCancel(c.Request.Context())
	perms := h.gate.Evaluate(ctx, m, actor(c).UID)

	events := make(chan streamEvent, 8)
	emitter := func(name string) func(service.Payload) {
		return func(p service.Payload) {
			select {
			case events <- streamEvent{name: name, data: p}:
			case <-ctx.Done():
			}
		}
	}

	surface := "sse:" + uuid.NewString()
	var subs []*realtime.Subscription
	for _, kind := range []realtime.Kind{realtime.KindComments, realtime.KindReactions} {
		key := realtime.Key{Surface: surface, Memorial: m, Photo: photo, Kind: kind}
		run, err := h.svc.Feeds.For(key, perms, emitter(string(kind)))
		if err != nil {
			cancel()
			h.registry.CloseSurface(surface)
			h.fail(c, err)
			return
		}
		subs = append(subs, h.registry.Open(ctx, key, run))
	}
	defer h.registry.CloseSurface(surface)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	c.Status(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case ev := <-events:
			data, err := json.Marshal(ev.data)
			if err != nil {
				h.log.Warn().Err(err).Str("event", ev.name).Msg("dropping unencodable event")
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.name, data)
			flusher.Flush()

		case <-subs[0].Done():
			h.streamEnded(c, flusher, subs[0])
			return

		case <-subs[1].Done():
			h.streamEnded(c, flusher, subs[1])
			return
		}
	}
}

func (h *Handler) streamEnded(c *gin.Context, flusher http.Flusher, sub *realtime.Subscription) {
	if err := sub.Err(); err != nil {
		h.log.Warn().Err(err).Str("key", sub.Key().String()).Msg("feed failed")
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"kind\":%q}\n\n", sub.Key().Kind)
		flusher.Flush()
	}
}
