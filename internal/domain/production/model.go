package production

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/materials"
)

// Violation: проблема одной строки плана. Не фатальна сама по себе:
// план собирает все проблемы, чтобы пользователь увидел их сразу.
type Violation struct {
	MaterialID uuid.UUID   `json:"materialId"`
	Kind       apperr.Kind `json:"kind"`
	Message    string      `json:"message"`
}

// Line: расчёт расхода одного ингредиента.
type Line struct {
	MaterialID           uuid.UUID          `json:"materialId"`
	MaterialName         string             `json:"materialName"`
	Unit                 materials.Unit     `json:"unit"`
	UnitType             materials.UnitType `json:"unitType"`
	IdealQuantityPerUnit decimal.Decimal    `json:"idealQuantityPerUnit"`
	IdealWastePerUnit    decimal.Decimal    `json:"idealWastePerUnit"`
	IdealTotal           decimal.Decimal    `json:"idealTotal"`
	IdealWasteTotal      decimal.Decimal    `json:"idealWasteTotal"`
	AvailableStock       decimal.Decimal    `json:"availableStock"`
	ActualWaste          decimal.Decimal    `json:"actualWaste"`
	TotalConsumed        decimal.Decimal    `json:"totalConsumed"`
	Violations           []Violation        `json:"violations"`
}

// Plan: несохранённая проекция заказа. Побочных эффектов не имеет:
// отказаться от заказа = просто выбросить план.
type Plan struct {
	OwnerID             string    `json:"ownerId"`
	FinishedProductID   uuid.UUID `json:"finishedProductId"`
	FinishedProductName string    `json:"finishedProductName"`
	Quantity            int64     `json:"quantity"`
	Lines               []Line    `json:"lines"`
}

type SnapshotLine struct {
	MaterialID             uuid.UUID       `json:"materialId"`
	MaterialName           string          `json:"materialName"`
	MaterialSize           materials.Unit  `json:"materialSize"`
	IdealQuantityPerUnit   decimal.Decimal `json:"idealQuantityPerUnit"`
	IdealWastePerUnit      decimal.Decimal `json:"idealWastePerUnit"`
	ActualQuantityConsumed decimal.Decimal `json:"actualQuantityConsumed"`
	ActualWaste            decimal.Decimal `json:"actualWaste"`
}

// Order: проведённый заказ на производство. Создаётся один раз и не меняется.
type Order struct {
	ID                  uuid.UUID      `json:"id"`
	OwnerID             string         `json:"ownerId"`
	FinishedProductID   uuid.UUID      `json:"finishedProductId"`
	FinishedProductName string         `json:"finishedProductName"`
	QuantityProduced    int64          `json:"quantityProduced"`
	ProductionDate      time.Time      `json:"productionDate"`
	Notes               string         `json:"notes"`
	BOMSnapshot         []SnapshotLine `json:"bomSnapshot"`
}

type Adjustment struct {
	MaterialID  uuid.UUID       `json:"materialId"`
	ManualWaste decimal.Decimal `json:"manualWaste"`
}

// OrderRequest: вход создания заказа от внешнего слоя (владелец уже аутентифицирован).
type OrderRequest struct {
	OwnerID               string       `json:"ownerId"`
	FinishedProductID     uuid.UUID    `json:"finishedProductId"`
	Quantity              int64        `json:"quantity"`
	Notes                 string       `json:"notes"`
	IngredientAdjustments []Adjustment `json:"ingredientAdjustments"`
}

func cloneOrder(o Order) Order {
	o.BOMSnapshot = append([]SnapshotLine(nil), o.BOMSnapshot...)
	return o
}
