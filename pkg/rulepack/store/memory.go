package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gra-pca/sentinel/pkg/rulepack"
)

// MemoryStore implements rulepack.Store with an in-memory map.
type MemoryStore struct {
	packs map[string]*rulepack.RulePack
	mu    sync.RWMutex
}

// NewMemoryStore creates a store seeded with copies of packs.
func NewMemoryStore(packs ...*rulepack.RulePack) *MemoryStore {
	s := &MemoryStore{packs: make(map[string]*rulepack.RulePack, len(packs))}
	for _, p := range packs {
		s.packs[p.ID] = p.Clone()
	}
	return s
}

// Get returns a copy of the pack with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*rulepack.RulePack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packs[id]
	if !ok {
		return nil, rulepack.NewStoreError("memory", "get", id, rulepack.ErrNotFound)
	}
	return p.Clone(), nil
}

// Put stores a copy of p.
func (s *MemoryStore) Put(ctx context.Context, p *rulepack.RulePack) error {
	if err := ctx.Err(); err != nil {
		return rulepack.NewStoreError("memory", "put", p.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.packs[p.ID] = p.Clone()
	return nil
}

// List returns copies of every pack ordered by ID.
func (s *MemoryStore) List(ctx context.Context) ([]*rulepack.RulePack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	packs := make([]*rulepack.RulePack, 0, len(s.packs))
	for _, p := range s.packs {
		packs = append(packs, p.Clone())
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].ID < packs[j].ID })
	return packs, nil
}

// Delete removes the pack with the given ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packs[id]; !ok {
		return rulepack.NewStoreError("memory", "delete", id, rulepack.ErrNotFound)
	}
	delete(s.packs, id)
	return nil
}

// Activate switches the active pack under a single lock.
func (s *MemoryStore) Activate(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packs[id]; !ok {
		return rulepack.NewStoreError("memory", "activate", id, rulepack.ErrNotFound)
	}
	for pid, p := range s.packs {
		if active := pid == id; p.IsActive != active {
			p.IsActive = active
			p.UpdatedAt = at
		}
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
