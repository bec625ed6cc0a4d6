package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/materials"
)

func (h *Handler) listMaterials(c *gin.Context) {
	var kind materials.Kind
	if s := c.Query("kind"); s != "" {
		k, ok := materials.ParseKind(s)
		if !ok {
			h.fail(c, apperr.New(apperr.KindInvalidInput, "unknown material kind %q", s))
			return
		}
		kind = k
	}
	items, err := h.materials.List(c.Request.Context(), owner(c), kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []materials.Material{}
	}
	c.JSON(http.StatusOK, gin.H{"materials": items, "count": len(items)})
}

func (h *Handler) createMaterial(c *gin.Context) {
	var m materials.Material
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, err)
		return
	}
	// id выдаёт сервер: первичный ключ общий для всех владельцев
	m.ID = uuid.Nil
	m.OwnerID = owner(c)
	id, err := h.materials.Create(c.Request.Context(), m)
	if err != nil {
		h.fail(c, err)
		return
	}
	created, err := h.materials.Get(c.Request.Context(), m.OwnerID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) getMaterial(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	m, err := h.materials.Get(c.Request.Context(), owner(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) deleteMaterial(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	if err := h.materials.Delete(c.Request.Context(), owner(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type stockRequest struct {
	Delta decimal.Decimal `json:"delta"`
	Note  string          `json:"note"`
}

// adjustStock: ручной приход или списание одной строкой.
func (h *Handler) adjustStock(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Delta.IsZero() {
		h.fail(c, apperr.New(apperr.KindInvalidQuantity, "delta must not be zero").WithMaterials(id))
		return
	}
	updated, err := h.materials.ApplyDeltas(c.Request.Context(), owner(c), []materials.Delta{
		{MaterialID: id, Quantity: req.Delta, Note: req.Note},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated[0])
}

func (h *Handler) listMovements(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	if _, err := h.materials.Get(c.Request.Context(), owner(c), id); err != nil {
		h.fail(c, err)
		return
	}
	moves, err := h.materials.Movements(c.Request.Context(), owner(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if moves == nil {
		moves = []materials.Movement{}
	}
	c.JSON(http.StatusOK, gin.H{"movements": moves})
}

type importRequest struct {
	Items []materials.Material `json:"items"`
}

type importRow struct {
	Row   int        `json:"row"`
	ID    string     `json:"id,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func (h *Handler) importMaterials(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	for i := range req.Items {
		req.Items[i].ID = uuid.Nil
	}
	results := materials.Import(c.Request.Context(), h.materials, owner(c), req.Items)
	rows := make([]importRow, 0, len(results))
	var failed int
	for _, r := range results {
		row := importRow{Row: r.Row}
		if r.Err != nil {
			failed++
			row.Error = &errorBody{Kind: apperr.KindOf(r.Err), Message: r.Err.Error(), Materials: apperr.MaterialsOf(r.Err)}
		} else {
			row.ID = r.ID.String()
		}
		rows = append(rows, row)
	}
	h.log.Info("materials imported", "owner", owner(c), "total", len(rows), "failed", failed)
	c.JSON(http.StatusOK, gin.H{"results": rows, "created": len(rows) - failed, "failed": failed})
}
