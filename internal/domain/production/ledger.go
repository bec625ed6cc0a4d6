package production

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/materials"
)

// Ledger: журнал проведённых заказов. Записи только добавляются.
type Ledger interface {
	Append(ctx context.Context, o Order) (uuid.UUID, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (Order, error)
	// List: заказы владельца, новые сначала.
	List(ctx context.Context, ownerID string) ([]Order, error)
}

// StockLedger: журнал, который умеет провести движение остатков и запись
// заказа атомарно. build получает материалы после списания и собирает заказ.
type StockLedger interface {
	CommitOrder(ctx context.Context, ownerID string, deltas []materials.Delta, build func([]materials.Material) Order) (Order, error)
}

type MemoryLedger struct {
	mu     sync.RWMutex
	orders map[string][]Order
}

var _ Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{orders: map[string][]Order{}}
}

func (l *MemoryLedger) Append(_ context.Context, o Order) (uuid.UUID, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.orders[o.OwnerID] {
		if existing.ID == o.ID {
			return uuid.Nil, apperr.New(apperr.KindConflict, "order %s already recorded", o.ID)
		}
	}
	l.orders[o.OwnerID] = append(l.orders[o.OwnerID], cloneOrder(o))
	return o.ID, nil
}

func (l *MemoryLedger) Get(_ context.Context, ownerID string, id uuid.UUID) (Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, o := range l.orders[ownerID] {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return Order{}, apperr.New(apperr.KindNotFound, "production order %s not found", id)
}

func (l *MemoryLedger) List(_ context.Context, ownerID string) ([]Order, error) {
	l.mu.RLock()
	out := make([]Order, 0, len(l.orders[ownerID]))
	for _, o := range l.orders[ownerID] {
		out = append(out, cloneOrder(o))
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProductionDate.After(out[j].ProductionDate)
	})
	return out, nil
}
