package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetMemorial returns the normalised descriptor. A missing descriptor is a
// 404 for this route only; the interaction routes keep working.
func (h *Handler) GetMemorial(c *gin.Context) {
	m, err := h.content.Get(c.Request.Context(), memorialID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"memorial":    m,
		"anniversary": m.IsAnniversary(h.now()),
	})
}

// GetViewer returns the caller's permissions on the memorial and the page
// controls they unlock.
func (h *Handler) GetViewer(c *gin.Context) {
	a := actor(c)
	perms := h.gate.Evaluate(c.Request.Context(), memorialID(c), a.UID)

	c.JSON(http.StatusOK, gin.H{
		"permissions": perms,
		"affordances": perms.Affordances(),
		"name":        a.Name,
	})
}

func (h *Handler) RecordVisit(c *gin.Context) {
	var body struct {
		DeviceID string `json:"deviceId"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &body) {
		return
	}
	device := strings.TrimSpace(body.DeviceID)
	if device == "" {
		device = strings.TrimSpace(c.GetHeader("X-Device-Id"))
	}

	counted, err := h.svc.Stats.RecordVisit(c.Request.Context(), memorialID(c), device)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counted": counted})
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	m := memorialID(c)

	st, err := h.svc.Stats.Get(ctx, m)
	if err != nil {
		h.fail(c, err)
		return
	}
	candles, err := h.svc.Stats.CandleCount(ctx, m)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": st, "candles": candles})
}

// GetStatsHistory serves the nightly snapshots to moderators.
func (h *Handler) GetStatsHistory(c *gin.Context) {
	m := memorialID(c)
	perms := h.gate.Evaluate(c.Request.Context(), m, actor(c).UID)
	if err := perms.AllowModerate(); err != nil {
		h.fail(c, err)
		return
	}
	if h.snapshots == nil {
		c.JSON(http.StatusOK, gin.H{"snapshots": []interface{}{}, "enabled": false})
		return
	}

	snaps, err := h.snapshots.ListByMemorial(c.Request.Context(), m, intQuery(c, "days", 30))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps, "enabled": true})
}

func (h *Handler) ListAudit(c *gin.Context) {
	m := memorialID(c)
	perms := h.gate.Evaluate(c.Request.Context(), m, actor(c).UID)
	if err := perms.AllowModerate(); err != nil {
		h.fail(c, err)
		return
	}
	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []interface{}{}, "enabled": false})
		return
	}

	entries, err := h.audit.List(c.Request.Context(), m, intQuery(c, "limit", 100))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "enabled": true})
}
