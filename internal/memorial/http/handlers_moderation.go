package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
)

type targetBody struct {
	UID    string `json:"uid"`
	Reason string `json:"reason,omitempty"`
}

// ModerationQueue lists recent comments across the whole gallery for the
// moderation panel. ?showHidden=true includes hidden ones.
func (h *Handler) ModerationQueue(c *gin.Context) {
	ctx := c.Request.Context()
	m := memorialID(c)

	page, err := h.content.Get(ctx, m)
	if err != nil {
		h.fail(c, err)
		return
	}

	showHidden := c.Query("showHidden") == "true" || c.Query("showHidden") == "1"
	items, err := h.svc.Comments.ModerationQueue(ctx, m, page.PhotoCount(), showHidden, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "photoCount": page.PhotoCount()})
}

func (h *Handler) ListReports(c *gin.Context) {
	status := domain.ReportStatus(strings.TrimSpace(c.Query("status")))
	reports, err := h.svc.Reports.List(c.Request.Context(), memorialID(c), actor(c), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *Handler) CreateReport(c *gin.Context) {
	var in service.CreateReportInput
	if !bindJSON(c, &in) {
		return
	}

	r, err := h.svc.Reports.Create(c.Request.Context(), memorialID(c), actor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": r})
}

func (h *Handler) ResolveReport(c *gin.Context) {
	r, err := h.svc.Reports.Resolve(c.Request.Context(), memorialID(c), c.Param("reportId"), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": r})
}

func (h *Handler) DismissReport(c *gin.Context) {
	r, err := h.svc.Reports.Dismiss(c.Request.Context(), memorialID(c), c.Param("reportId"), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": r})
}

func (h *Handler) ApplyReportAction(c *gin.Context) {
	var body struct {
		Action string `json:"action"`
	}
	if !bindJSON(c, &body) {
		return
	}

	action := service.ReportAction(strings.TrimSpace(body.Action))
	if err := h.svc.Reports.ApplyAction(c.Request.Context(), memorialID(c), c.Param("reportId"), actor(c), action); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": action})
}

func (h *Handler) ListStaff(c *gin.Context) {
	staff, err := h.svc.Moderation.ListStaff(c.Request.Context(), memorialID(c), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (h *Handler) PromoteMod(c *gin.Context) {
	var body targetBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.svc.Moderation.Promote(c.Request.Context(), memorialID(c), actor(c), strings.TrimSpace(body.UID)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": strings.TrimSpace(body.UID), "role": "mod"})
}

func (h *Handler) DemoteMod(c *gin.Context) {
	if err := h.svc.Moderation.Demote(c.Request.Context(), memorialID(c), actor(c), c.Param("uid")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GrantAdmin(c *gin.Context) {
	var body targetBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.svc.Moderation.GrantMemorialAdmin(c.Request.Context(), memorialID(c), actor(c), strings.TrimSpace(body.UID)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": strings.TrimSpace(body.UID), "role": "memorial-admin"})
}

func (h *Handler) RevokeAdmin(c *gin.Context) {
	if err := h.svc.Moderation.RevokeMemorialAdmin(c.Request.Context(), memorialID(c), actor(c), c.Param("uid")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListBlocked(c *gin.Context) {
	blocked, err := h.svc.Moderation.ListBlocked(c.Request.Context(), memorialID(c), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocked})
}

func (h *Handler) BlockUser(c *gin.Context) {
	var body targetBody
	if !bindJSON(c, &body) {
		return
	}
	uid := strings.TrimSpace(body.UID)
	if err := h.svc.Moderation.Block(c.Request.Context(), memorialID(c), actor(c), uid, body.Reason); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "blocked": true})
}

func (h *Handler) UnblockUser(c *gin.Context) {
	if err := h.svc.Moderation.Unblock(c.Request.Context(), memorialID(c), actor(c), c.Param("uid")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
