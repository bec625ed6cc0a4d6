package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/stockflow/internal/domain/bom"
)

type bomRequest struct {
	Ingredients []bom.Entry `json:"ingredients"`
}

func (h *Handler) getBOM(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	entries, err := h.boms.Get(c.Request.Context(), owner(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"finishedProductId": id, "ingredients": entries})
}

// setBOM заменяет спецификацию целиком.
func (h *Handler) setBOM(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req bomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.boms.Set(c.Request.Context(), owner(c), id, req.Ingredients); err != nil {
		h.fail(c, err)
		return
	}
	h.getBOM(c)
}
