package http

import "github.com/gin-gonic/gin"

// Register mounts the memorial routes. rg must already run the optional
// Firebase auth middleware; each service call decides whether an anonymous
// caller is acceptable.
func (h *Handler) Register(rg *gin.RouterGroup) {
	m := rg.Group("/memorials/:memorialId")
	w := h.writeLimit

	m.GET("", h.GetMemorial)
	m.GET("/me", h.GetViewer)
	m.POST("/visits", w, h.RecordVisit)
	m.GET("/stats", h.GetStats)
	m.GET("/stats/history", h.GetStatsHistory)

	m.GET("/photos/:photo/comments", h.ListComments)
	m.POST("/photos/:photo/comments", w, h.PostComment)
	m.POST("/photos/:photo/comments/:commentId/hide", w, h.SetCommentHidden)
	m.POST("/photos/:photo/comments/:commentId/toggle-hidden", w, h.ToggleCommentHidden)
	m.GET("/photos/:photo/reactions", h.GetReactions)
	m.POST("/photos/:photo/reactions", w, h.ToggleReaction)
	m.GET("/photos/:photo/stream", h.StreamPhoto)

	m.GET("/candles", h.GetCandles)
	m.POST("/candles", w, h.ToggleCandle)

	m.GET("/moderation/queue", h.ModerationQueue)
	m.GET("/reports", h.ListReports)
	m.POST("/reports", w, h.CreateReport)
	m.POST("/reports/:reportId/resolve", w, h.ResolveReport)
	m.POST("/reports/:reportId/dismiss", w, h.DismissReport)
	m.POST("/reports/:reportId/actions", w, h.ApplyReportAction)

	m.GET("/staff", h.ListStaff)
	m.POST("/mods", w, h.PromoteMod)
	m.DELETE("/mods/:uid", w, h.DemoteMod)
	m.POST("/admins", w, h.GrantAdmin)
	m.DELETE("/admins/:uid", w, h.RevokeAdmin)

	m.GET("/blocked", h.ListBlocked)
	m.POST("/blocked", w, h.BlockUser)
	m.DELETE("/blocked/:uid", w, h.UnblockUser)

	m.GET("/audit", h.ListAudit)
	m.GET("/ws", h.Socket)
}
