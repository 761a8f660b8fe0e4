package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListComments(c *gin.Context) {
	photo, ok := photoParam(c)
	if !ok {
		return
	}
	m := memorialID(c)
	perms := h.gate.Evaluate(c.Request.Context(), m, actor(c).UID)

	comments, err := h.svc.Comments.List(c.Request.Context(), m, photo, perms.CanModerate)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *Handler) PostComment(c *gin.Context) {
	photo, ok := photoParam(c)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &body) {
		return
	}

	comment, err := h.svc.Comments.Post(c.Request.Context(), memorialID(c), photo, actor(c), body.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *Handler) SetCommentHidden(c *gin.Context) {
	photo, ok := photoParam(c)
	if !ok {
		return
	}
	body := struct {
		Hidden *bool `json:"hidden"`
	}{}
	if c.Request.ContentLength > 0 && !bindJSON(c, &body) {
		return
	}
	hidden := true
	if body.Hidden != nil {
		hidden = *body.Hidden
	}

	err := h.svc.Comments.SetHidden(c.Request.Context(), memorialID(c), photo, c.Param("commentId"), actor(c), hidden)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hidden": hidden})
}

func (h *Handler) ToggleCommentHidden(c *gin.Context) {
	photo, ok := photoParam(c)
	if !ok {
		return
	}

	hidden, err := h.svc.Comments.ToggleHidden(c.Request.Context(), memorialID(c), photo, c.Param("commentId"), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hidden": hidden})
}

func (h *Handler) GetReactions(c *gin.Context) {
	photo, ok := photoParam(c)
	if !ok {
		return
	}

	sum, err := h.svc.Reactions.Summary(c.Request.Context(), memorialID(c), photo, actor(c).UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) ToggleReaction(c *gin.Context) {
	photo, ok := photoParam(c)
	if !ok {
		return
	}
	var body struct {
		Emoji string `json:"emoji"`
	}
	if !bindJSON(c, &body) {
		return
	}

	res, err := h.svc.Reactions.Toggle(c.Request.Context(), memorialID(c), photo, actor(c), body.Emoji)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetCandles(c *gin.Context) {
	sum, err := h.svc.Candles.Summary(c.Request.Context(), memorialID(c), actor(c).UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) ToggleCandle(c *gin.Context) {
	ctx := c.Request.Context()
	m := memorialID(c)

	lit, err := h.svc.Candles.Toggle(ctx, m, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	sum, err := h.svc.Candles.Summary(ctx, m, actor(c).UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lit": lit, "count": sum.Count})
}
