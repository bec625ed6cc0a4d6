package bom

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry: строка спецификации, сколько сырья уходит на одну единицу продукции.
type Entry struct {
	MaterialID           uuid.UUID       `json:"material"`
	IdealQuantityPerUnit decimal.Decimal `json:"quantity"`
	IdealWastePerUnit    decimal.Decimal `json:"waste"`
}

func cloneEntries(in []Entry) []Entry {
	if in == nil {
		return []Entry{}
	}
	out := make([]Entry, len(in))
	copy(out, in)
	return out
}
