package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/production"
)

type orderRequest struct {
	FinishedProductID     uuid.UUID               `json:"finishedProductId"`
	Quantity              decimal.Decimal         `json:"quantity"`
	Notes                 string                  `json:"notes"`
	IngredientAdjustments []production.Adjustment `json:"ingredientAdjustments"`
}

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// quantity приходит как число: дробное или неположительное отсекаем до расчёта.
func (r orderRequest) quantity() (int64, error) {
	if !r.Quantity.IsInteger() || !r.Quantity.IsPositive() {
		return 0, apperr.New(apperr.KindInvalidQuantity, "quantity to produce must be a positive integer, got %s", r.Quantity)
	}
	if r.Quantity.GreaterThan(maxQuantity) {
		return 0, apperr.New(apperr.KindInvalidQuantity, "quantity to produce is too large, got %s", r.Quantity)
	}
	return r.Quantity.IntPart(), nil
}

type planResponse struct {
	production.Plan
	Violations  []production.Violation `json:"violations"`
	Committable bool                   `json:"committable"`
}

func (h *Handler) prepareOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	qty, err := req.quantity()
	if err != nil {
		h.fail(c, err)
		return
	}
	plan, err := h.engine.Prepare(c.Request.Context(), owner(c), req.FinishedProductID, qty)
	if err != nil {
		h.fail(c, err)
		return
	}
	plan, err = h.engine.Revise(plan, req.IngredientAdjustments)
	if err != nil {
		h.fail(c, err)
		return
	}
	vs := production.Validate(plan)
	if vs == nil {
		vs = []production.Violation{}
	}
	c.JSON(http.StatusOK, planResponse{Plan: plan, Violations: vs, Committable: len(vs) == 0})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	qty, err := req.quantity()
	if err != nil {
		h.fail(c, err)
		return
	}
	order, err := h.engine.CreateOrder(c.Request.Context(), production.OrderRequest{
		OwnerID:               owner(c),
		FinishedProductID:     req.FinishedProductID,
		Quantity:              qty,
		Notes:                 req.Notes,
		IngredientAdjustments: req.IngredientAdjustments,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.ledger.List(c.Request.Context(), owner(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if orders == nil {
		orders = []production.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	order, err := h.ledger.Get(c.Request.Context(), owner(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
