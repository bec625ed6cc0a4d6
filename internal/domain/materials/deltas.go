package materials

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/apperr"
)

// mergeDeltas складывает изменения по одному материалу, сохраняя порядок первого появления.
func mergeDeltas(deltas []Delta) []Delta {
	idx := make(map[uuid.UUID]int, len(deltas))
	out := make([]Delta, 0, len(deltas))
	for _, d := range deltas {
		if i, ok := idx[d.MaterialID]; ok {
			out[i].Quantity = out[i].Quantity.Add(d.Quantity)
			if d.Note != "" && !strings.Contains(out[i].Note, d.Note) {
				out[i].Note = strings.TrimSpace(out[i].Note + "; " + d.Note)
			}
			continue
		}
		idx[d.MaterialID] = len(out)
		out = append(out, d)
	}
	return out
}

// planDeltas считает новые остатки, ничего не меняя. Отклоняет набор целиком:
// сначала отсутствующие материалы, затем дробные изменения штучных,
// затем уход остатка в минус. В ошибке перечислены все виновные материалы.
func planDeltas(current map[uuid.UUID]Material, merged []Delta) ([]Material, error) {
	var missing, fractional, short []uuid.UUID
	out := make([]Material, 0, len(merged))

	for _, d := range merged {
		m, ok := current[d.MaterialID]
		if !ok {
			missing = append(missing, d.MaterialID)
			continue
		}
		if m.UnitType == UnitTypeDiscrete && !d.Quantity.IsInteger() {
			fractional = append(fractional, d.MaterialID)
			continue
		}
		next := m.Stock.Add(d.Quantity)
		if next.LessThan(decimal.Zero) {
			short = append(short, d.MaterialID)
			continue
		}
		m.Stock = next
		out = append(out, m)
	}

	switch {
	case len(missing) > 0:
		return nil, apperr.New(apperr.KindNotFound, "material not found").WithMaterials(missing...)
	case len(fractional) > 0:
		return nil, apperr.New(apperr.KindInvalidQuantity, "discrete material stock must stay a whole number").WithMaterials(fractional...)
	case len(short) > 0:
		return nil, apperr.New(apperr.KindInsufficientStock, "stock cannot go below zero").WithMaterials(short...)
	}
	return out, nil
}
