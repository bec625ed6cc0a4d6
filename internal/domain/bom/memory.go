package bom

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type key struct {
	owner   string
	product uuid.UUID
}

type MemoryStore struct {
	mu   sync.RWMutex
	boms map[key][]Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{boms: map[key][]Entry{}}
}

func (s *MemoryStore) Load(_ context.Context, ownerID string, productID uuid.UUID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.boms[key{ownerID, productID}]), nil
}

func (s *MemoryStore) Replace(_ context.Context, ownerID string, productID uuid.UUID, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boms[key{ownerID, productID}] = cloneEntries(entries)
	return nil
}
