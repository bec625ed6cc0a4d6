package bom

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/materials"
	"github.com/Spok95/stockflow/internal/infra/metrics"
)

// Store хранит последовательности строк по id готового продукта.
type Store interface {
	Load(ctx context.Context, ownerID string, productID uuid.UUID) ([]Entry, error)
	// Replace заменяет спецификацию целиком, старые строки не сливаются с новыми.
	Replace(ctx context.Context, ownerID string, productID uuid.UUID, entries []Entry) error
}

type MaterialReader interface {
	Get(ctx context.Context, ownerID string, id uuid.UUID) (materials.Material, error)
}

type Registry struct {
	store     Store
	materials MaterialReader
	log       *slog.Logger
}

func NewRegistry(store Store, mats MaterialReader, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{store: store, materials: mats, log: log.With("component", "bom")}
}

func (r *Registry) product(ctx context.Context, ownerID string, productID uuid.UUID) (materials.Material, error) {
	p, err := r.materials.Get(ctx, ownerID, productID)
	if err != nil {
		return materials.Material{}, err
	}
	if p.Kind != materials.KindReady {
		return materials.Material{}, apperr.New(apperr.KindNotFound, "finished product %s not found", productID).WithMaterials(productID)
	}
	return p, nil
}

// Get возвращает спецификацию; пустой срез, если её ещё не задали.
// NotFound: только если нет самого готового продукта.
func (r *Registry) Get(ctx context.Context, ownerID string, productID uuid.UUID) ([]Entry, error) {
	if _, err := r.product(ctx, ownerID, productID); err != nil {
		return nil, err
	}
	entries, err := r.store.Load(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}
	return cloneEntries(entries), nil
}

// Set проверяет все строки и заменяет спецификацию атомарно.
// Прошлые заказы не затрагиваются: у них свой снимок.
func (r *Registry) Set(ctx context.Context, ownerID string, productID uuid.UUID, entries []Entry) error {
	if _, err := r.product(ctx, ownerID, productID); err != nil {
		return err
	}

	seen := make(map[uuid.UUID]struct{}, len(entries))
	var missing, negative []uuid.UUID
	for _, e := range entries {
		if _, dup := seen[e.MaterialID]; dup {
			return apperr.New(apperr.KindInvalidInput, "material %s is listed twice", e.MaterialID).WithMaterials(e.MaterialID)
		}
		seen[e.MaterialID] = struct{}{}

		if e.IdealQuantityPerUnit.IsNegative() || e.IdealWastePerUnit.IsNegative() {
			negative = append(negative, e.MaterialID)
			continue
		}
		m, err := r.materials.Get(ctx, ownerID, e.MaterialID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				missing = append(missing, e.MaterialID)
				continue
			}
			return err
		}
		if m.Kind != materials.KindRaw {
			missing = append(missing, e.MaterialID)
		}
	}
	if len(negative) > 0 {
		return apperr.New(apperr.KindInvalidQuantity, "quantity and waste must be non-negative").WithMaterials(negative...)
	}
	if len(missing) > 0 {
		return apperr.New(apperr.KindNotFound, "raw material not found").WithMaterials(missing...)
	}

	if err := r.store.Replace(ctx, ownerID, productID, cloneEntries(entries)); err != nil {
		return err
	}
	metrics.BOMUpdates.Inc()
	r.log.Info("bom replaced", "owner", ownerID, "product", productID, "entries", len(entries))
	return nil
}
