package materials

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/apperr"
)

type Kind string

const (
	KindRaw   Kind = "raw"
	KindReady Kind = "ready"
)

type UnitType string

const (
	UnitTypeDiscrete UnitType = "discrete"
	UnitTypeBulk     UnitType = "bulk"
)

type Unit string

const (
	UnitPcs Unit = "units"
	UnitKg  Unit = "kg"
	UnitG   Unit = "g"
	UnitL   Unit = "L"
	UnitML  Unit = "mL"
)

var unitAliases = map[string]Unit{
	"units":      UnitPcs,
	"unit":       UnitPcs,
	"pcs":        UnitPcs,
	"kg":         UnitKg,
	"kilogram":   UnitKg,
	"kilograms":  UnitKg,
	"g":          UnitG,
	"gram":       UnitG,
	"grams":      UnitG,
	"l":          UnitL,
	"liter":      UnitL,
	"liters":     UnitL,
	"litre":      UnitL,
	"litres":     UnitL,
	"ml":         UnitML,
	"milliliter": UnitML,
	"millilitre": UnitML,
}

// ParseUnit приводит метку единицы к каноническому виду (kg, g, L, mL, units).
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}

// IsBulk: единица из допустимого набора для сыпучих/жидких материалов.
func (u Unit) IsBulk() bool {
	switch u {
	case UnitKg, UnitG, UnitL, UnitML:
		return true
	}
	return false
}

func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindRaw:
		return KindRaw, true
	case KindReady:
		return KindReady, true
	}
	return "", false
}

func ParseUnitType(s string) (UnitType, bool) {
	switch UnitType(strings.ToLower(strings.TrimSpace(s))) {
	case UnitTypeDiscrete:
		return UnitTypeDiscrete, true
	case UnitTypeBulk:
		return UnitTypeBulk, true
	}
	return "", false
}

// Material: сырьё (raw) или готовая продукция (ready) одного владельца.
type Material struct {
	ID           uuid.UUID       `json:"id"`
	OwnerID      string          `json:"ownerId"`
	Kind         Kind            `json:"kind"`
	Name         string          `json:"name"`
	Manufacturer string          `json:"manufacturer"`
	Description  string          `json:"description"`
	UnitType     UnitType        `json:"unitType"`
	Unit         Unit            `json:"unit"`
	Stock        decimal.Decimal `json:"stock"`
	Price        decimal.Decimal `json:"price"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Normalize проверяет инварианты записи и приводит единицу к канонической метке.
// Для discrete единица всегда "units", для bulk: одна из kg, g, L, mL.
func (m *Material) Normalize() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Manufacturer = strings.TrimSpace(m.Manufacturer)
	m.Description = strings.TrimSpace(m.Description)

	if strings.TrimSpace(m.OwnerID) == "" {
		return apperr.New(apperr.KindInvalidInput, "owner id is required")
	}
	if m.Name == "" {
		return apperr.New(apperr.KindInvalidInput, "name is required")
	}
	kind, ok := ParseKind(string(m.Kind))
	if !ok {
		return apperr.New(apperr.KindInvalidInput, "unknown material kind %q", m.Kind)
	}
	m.Kind = kind

	ut, ok := ParseUnitType(string(m.UnitType))
	if !ok {
		return apperr.New(apperr.KindInvalidInput, "unknown unit type %q", m.UnitType)
	}
	m.UnitType = ut

	switch ut {
	case UnitTypeDiscrete:
		if m.Unit != "" {
			u, ok := ParseUnit(string(m.Unit))
			if !ok || u != UnitPcs {
				return apperr.New(apperr.KindInvalidInput, "discrete material must use %q, got %q", UnitPcs, m.Unit)
			}
		}
		m.Unit = UnitPcs
	case UnitTypeBulk:
		u, ok := ParseUnit(string(m.Unit))
		if !ok || !u.IsBulk() {
			return apperr.New(apperr.KindInvalidInput, "bulk unit %q is not allowed (kg, g, L, mL)", m.Unit)
		}
		m.Unit = u
	}

	if m.Stock.IsNegative() {
		return apperr.New(apperr.KindInvalidQuantity, "stock cannot be negative, got %s", m.Stock)
	}
	if ut == UnitTypeDiscrete && !m.Stock.IsInteger() {
		return apperr.New(apperr.KindInvalidQuantity, "discrete stock must be a whole number, got %s", m.Stock)
	}
	if m.Price.IsNegative() {
		return apperr.New(apperr.KindInvalidQuantity, "price cannot be negative, got %s", m.Price)
	}
	return nil
}

// Delta: изменение остатка, > 0 приход, < 0 списание.
type Delta struct {
	MaterialID uuid.UUID
	Quantity   decimal.Decimal
	Note       string
}

type Movement struct {
	ID         int64           `json:"id"`
	OwnerID    string          `json:"ownerId"`
	MaterialID uuid.UUID       `json:"materialId"`
	Delta      decimal.Decimal `json:"delta"`
	Note       string          `json:"note"`
	CreatedAt  time.Time       `json:"createdAt"`
}
