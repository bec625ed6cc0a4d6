package materials

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/stockflow/internal/domain/apperr"
)

type tenant struct {
	mu        sync.RWMutex
	items     map[uuid.UUID]Material
	movements []Movement
}

// MemoryStore держит материалы в памяти. Блокировка берётся на владельца,
// поэтому изменения разных владельцев друг друга не ждут.
type MemoryStore struct {
	mu      sync.Mutex
	tenants map[string]*tenant
	nextMov int64
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: map[string]*tenant{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) tenant(ownerID string) *tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[ownerID]
	if !ok {
		t = &tenant{items: map[uuid.UUID]Material{}}
		s.tenants[ownerID] = t
	}
	return t
}

// lookup не заводит владельца: чтение по чужому или новому id ничего не создаёт.
func (s *MemoryStore) lookup(ownerID string) (*tenant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[ownerID]
	return t, ok
}

func (s *MemoryStore) movementID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMov++
	return s.nextMov
}

func (s *MemoryStore) Get(_ context.Context, ownerID string, id uuid.UUID) (Material, error) {
	t, ok := s.lookup(ownerID)
	if !ok {
		return Material{}, apperr.New(apperr.KindNotFound, "material %s not found", id).WithMaterials(id)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.items[id]
	if !ok {
		return Material{}, apperr.New(apperr.KindNotFound, "material %s not found", id).WithMaterials(id)
	}
	return m, nil
}

func (s *MemoryStore) List(_ context.Context, ownerID string, kind Kind) ([]Material, error) {
	t, ok := s.lookup(ownerID)
	if !ok {
		return []Material{}, nil
	}
	t.mu.RLock()
	out := make([]Material, 0, len(t.items))
	for _, m := range t.items {
		if kind == "" || m.Kind == kind {
			out = append(out, m)
		}
	}
	t.mu.RUnlock()
	sortMaterials(out)
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, m Material) (uuid.UUID, error) {
	if err := m.Normalize(); err != nil {
		return uuid.Nil, err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now

	t := s.tenant(m.OwnerID)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.items[m.ID]; exists {
		return uuid.Nil, apperr.New(apperr.KindConflict, "material %s already exists", m.ID).WithMaterials(m.ID)
	}
	t.items[m.ID] = m
	return m.ID, nil
}

func (s *MemoryStore) Delete(_ context.Context, ownerID string, id uuid.UUID) error {
	t, ok := s.lookup(ownerID)
	if !ok {
		return apperr.New(apperr.KindNotFound, "material %s not found", id).WithMaterials(id)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return apperr.New(apperr.KindNotFound, "material %s not found", id).WithMaterials(id)
	}
	delete(t.items, id)
	return nil
}

func (s *MemoryStore) ApplyDeltas(_ context.Context, ownerID string, deltas []Delta) ([]Material, error) {
	merged := mergeDeltas(deltas)

	t, ok := s.lookup(ownerID)
	if !ok {
		// у нового владельца материалов нет: planDeltas вернёт NotFound
		t = &tenant{items: map[uuid.UUID]Material{}}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := planDeltas(t.items, merged)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range next {
		next[i].UpdatedAt = now
		t.items[next[i].ID] = next[i]
	}
	for _, d := range merged {
		t.movements = append(t.movements, Movement{
			ID:         s.movementID(),
			OwnerID:    ownerID,
			MaterialID: d.MaterialID,
			Delta:      d.Quantity,
			Note:       d.Note,
			CreatedAt:  now,
		})
	}
	return next, nil
}

func (s *MemoryStore) Movements(_ context.Context, ownerID string, materialID uuid.UUID) ([]Movement, error) {
	t, ok := s.lookup(ownerID)
	if !ok {
		return nil, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Movement
	for i := len(t.movements) - 1; i >= 0; i-- {
		if t.movements[i].MaterialID == materialID {
			out = append(out, t.movements[i])
		}
	}
	return out, nil
}

// sortMaterials сортирует как SQL-вариант (вид, имя, id).
func sortMaterials(ms []Material) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Kind != ms[j].Kind {
			return ms[i].Kind < ms[j].Kind
		}
		if ms[i].Name != ms[j].Name {
			return ms[i].Name < ms[j].Name
		}
		return ms[i].ID.String() < ms[j].ID.String()
	})
}
