// Package api: JSON API поверх склада, спецификаций и производства.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/bom"
	"github.com/Spok95/stockflow/internal/domain/materials"
	"github.com/Spok95/stockflow/internal/domain/production"
)

// OwnerHeader: владелец данных. Аутентификация снаружи, сюда приходит готовый id.
const OwnerHeader = "X-Owner-ID"

type BOMService interface {
	Get(ctx context.Context, ownerID string, productID uuid.UUID) ([]bom.Entry, error)
	Set(ctx context.Context, ownerID string, productID uuid.UUID, entries []bom.Entry) error
}

type Production interface {
	Prepare(ctx context.Context, ownerID string, productID uuid.UUID, quantity int64) (production.Plan, error)
	Revise(plan production.Plan, adjustments []production.Adjustment) (production.Plan, error)
	CreateOrder(ctx context.Context, req production.OrderRequest) (production.Order, error)
}

type Handler struct {
	materials materials.Store
	boms      BOMService
	engine    Production
	ledger    production.Ledger
	log       *slog.Logger
}

func New(mats materials.Store, boms BOMService, engine Production, ledger production.Ledger, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{materials: mats, boms: boms, engine: engine, ledger: ledger, log: log.With("component", "api")}
}

func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1", requireOwner())

	v1.GET("/materials", h.listMaterials)
	v1.POST("/materials", h.createMaterial)
	v1.GET("/materials/:id", h.getMaterial)
	v1.DELETE("/materials/:id", h.deleteMaterial)
	v1.POST("/materials/:id/stock", h.adjustStock)
	v1.GET("/materials/:id/movements", h.listMovements)
	v1.POST("/imports/materials", h.importMaterials)

	v1.GET("/products/:id/bom", h.getBOM)
	v1.PUT("/products/:id/bom", h.setBOM)

	v1.POST("/production-orders/prepare", h.prepareOrder)
	v1.POST("/production-orders", h.createOrder)
	v1.GET("/production-orders", h.listOrders)
	v1.GET("/production-orders/:id", h.getOrder)

	v1.GET("/reports/inventory.xlsx", h.inventoryReport)
	v1.GET("/reports/production-orders.xlsx", h.ordersReport)
}

func requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(OwnerHeader) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Kind:    apperr.KindInvalidInput,
				Message: OwnerHeader + " header is required",
			})
			return
		}
		c.Next()
	}
}

func owner(c *gin.Context) string { return c.GetHeader(OwnerHeader) }

type errorBody struct {
	Kind      apperr.Kind `json:"kind"`
	Message   string      `json:"message"`
	Materials []uuid.UUID `json:"materials,omitempty"`
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound, apperr.KindNoBOMDefined:
		return http.StatusNotFound
	case apperr.KindInvalidQuantity, apperr.KindInvalidInput, apperr.KindNonIntegralDiscreteConsumption:
		return http.StatusUnprocessableEntity
	case apperr.KindInsufficientStock, apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	body := errorBody{Kind: kind, Materials: apperr.MaterialsOf(err)}
	var e *apperr.Error
	if errors.As(err, &e) {
		body.Message = e.Message
	}
	if kind == apperr.KindStorageFault {
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		body.Message = "storage unavailable"
	}
	c.JSON(statusOf(kind), body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Kind: apperr.KindInvalidInput, Message: err.Error()})
}

func (h *Handler) idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.fail(c, apperr.New(apperr.KindNotFound, "malformed id %q", c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}
