package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func sendXLSX(c *gin.Context, name string, data []byte) {
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) inventoryReport(c *gin.Context) {
	items, err := h.materials.List(c.Request.Context(), owner(c), "")
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := report.Inventory(items)
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.KindStorageFault, err, "build inventory report"))
		return
	}
	sendXLSX(c, "inventory", data)
}

func (h *Handler) ordersReport(c *gin.Context) {
	orders, err := h.ledger.List(c.Request.Context(), owner(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := report.Orders(orders)
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.KindStorageFault, err, "build orders report"))
		return
	}
	sendXLSX(c, "production_orders", data)
}
