package materials

import (
	"context"

	"github.com/google/uuid"
)

// Store: хранилище материалов. Все вызовы изолированы по ownerID.
type Store interface {
	Get(ctx context.Context, ownerID string, id uuid.UUID) (Material, error)
	// List возвращает материалы владельца; пустой kind: все виды.
	List(ctx context.Context, ownerID string, kind Kind) ([]Material, error)
	Create(ctx context.Context, m Material) (uuid.UUID, error)
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
	// ApplyDeltas применяет весь набор атомарно и возвращает материалы после изменения.
	ApplyDeltas(ctx context.Context, ownerID string, deltas []Delta) ([]Material, error)
	Movements(ctx context.Context, ownerID string, materialID uuid.UUID) ([]Movement, error)
}

// ImportResult: результат создания одной записи при массовой загрузке.
type ImportResult struct {
	Row int       `json:"row"`
	ID  uuid.UUID `json:"id,omitempty"`
	Err error     `json:"-"`
}

// Import создаёт уже проверенные записи по одной; ошибка в строке не прерывает остальные.
func Import(ctx context.Context, s Store, ownerID string, items []Material) []ImportResult {
	out := make([]ImportResult, 0, len(items))
	for i, m := range items {
		m.OwnerID = ownerID
		id, err := s.Create(ctx, m)
		out = append(out, ImportResult{Row: i + 1, ID: id, Err: err})
	}
	return out
}
