package production

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/bom"
	"github.com/Spok95/stockflow/internal/domain/materials"
)

// newLine считает строку: idealTotal = qty/ед * N, отход по умолчанию = отход/ед * N,
// totalConsumed = idealTotal + actualWaste.
func newLine(e bom.Entry, m materials.Material, quantity int64) Line {
	n := decimal.NewFromInt(quantity)
	l := Line{
		MaterialID:           m.ID,
		MaterialName:         m.Name,
		Unit:                 m.Unit,
		UnitType:             m.UnitType,
		IdealQuantityPerUnit: e.IdealQuantityPerUnit,
		IdealWastePerUnit:    e.IdealWastePerUnit,
		IdealTotal:           e.IdealQuantityPerUnit.Mul(n),
		IdealWasteTotal:      e.IdealWastePerUnit.Mul(n),
		AvailableStock:       m.Stock,
	}
	l.ActualWaste = l.IdealWasteTotal
	l.recompute()
	return l
}

func (l *Line) recompute() {
	l.TotalConsumed = l.IdealTotal.Add(l.ActualWaste)
	l.Violations = l.evaluate()
}

func (l Line) evaluate() []Violation {
	var out []Violation
	if l.UnitType == materials.UnitTypeDiscrete && !l.TotalConsumed.IsInteger() {
		out = append(out, Violation{
			MaterialID: l.MaterialID,
			Kind:       apperr.KindNonIntegralDiscreteConsumption,
			Message:    fmt.Sprintf("discrete material needs whole numbers (%s)", l.TotalConsumed),
		})
	}
	if l.TotalConsumed.GreaterThan(l.AvailableStock) {
		out = append(out, Violation{
			MaterialID: l.MaterialID,
			Kind:       apperr.KindInsufficientStock,
			Message:    fmt.Sprintf("insufficient stock (need %s, have %s)", l.TotalConsumed, l.AvailableStock),
		})
	}
	return out
}

func (p Plan) clone() Plan {
	lines := make([]Line, len(p.Lines))
	for i, l := range p.Lines {
		l.Violations = append([]Violation(nil), l.Violations...)
		lines[i] = l
	}
	p.Lines = lines
	return p
}

// Revise заменяет фактический отход одной строки и пересчитывает только её.
// Исходный план не меняется.
func (p Plan) Revise(materialID uuid.UUID, actualWaste decimal.Decimal) (Plan, error) {
	if actualWaste.IsNegative() {
		return p, apperr.New(apperr.KindInvalidQuantity, "waste cannot be negative, got %s", actualWaste).WithMaterials(materialID)
	}
	for i := range p.Lines {
		if p.Lines[i].MaterialID != materialID {
			continue
		}
		next := p.clone()
		next.Lines[i].ActualWaste = actualWaste
		next.Lines[i].recompute()
		return next, nil
	}
	return p, apperr.New(apperr.KindNotFound, "material %s is not part of the plan", materialID).WithMaterials(materialID)
}

// Validate возвращает все нарушения плана в порядке строк.
func Validate(p Plan) []Violation {
	var out []Violation
	for _, l := range p.Lines {
		out = append(out, l.Violations...)
	}
	return out
}

// violationsError сворачивает нарушения в одну ошибку: вид первого нарушения,
// в Materials: все строки с проблемами.
func violationsError(vs []Violation) error {
	if len(vs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(vs))
	seen := map[uuid.UUID]struct{}{}
	for _, v := range vs {
		if _, ok := seen[v.MaterialID]; ok {
			continue
		}
		seen[v.MaterialID] = struct{}{}
		ids = append(ids, v.MaterialID)
	}
	return apperr.New(vs[0].Kind, "%s", vs[0].Message).WithMaterials(ids...)
}
