package storage

import (
	"context"
	"sort"
	"sync"

	"gra-pca/sentinel/pkg/execution"
)

// MemoryStorage implements execution.Storage with an in-memory map. It is
// intended for tests and single-process runs; nothing survives a restart.
type MemoryStorage struct {
	executions map[string]*execution.Execution
	mu         sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		executions: make(map[string]*execution.Execution),
	}
}

// Save stores a copy of e, replacing any execution with the same ID.
func (s *MemoryStorage) Save(ctx context.Context, e *execution.Execution) error {
	if err := ctx.Err(); err != nil {
		return execution.NewStorageError("memory", "save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.executions[e.ID] = e.Clone()
	return nil
}

// Get returns a copy of the execution with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*execution.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.executions[id]
	if !ok {
		return nil, execution.NewStorageError("memory", "get", execution.ErrNotFound)
	}
	return e.Clone(), nil
}

// Query returns copies of matching executions, newest first.
func (s *MemoryStorage) Query(ctx context.Context, q *execution.Query) ([]*execution.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*execution.Execution{}
	for _, e := range s.executions {
		if q.Matches(e) {
			results = append(results, e.Clone())
		}
	}
	sortNewestFirst(results)

	if q == nil {
		return results, nil
	}

	// Apply pagination
	start := q.Offset
	if start > len(results) {
		return []*execution.Execution{}, nil
	}
	end := len(results)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return results[start:end], nil
}

// Count returns the number of matching executions.
func (s *MemoryStorage) Count(ctx context.Context, q *execution.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.executions {
		if q.Matches(e) {
			n++
		}
	}
	return n, nil
}

// Delete removes matching executions.
func (s *MemoryStorage) Delete(ctx context.Context, q *execution.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, e := range s.executions {
		if q.Matches(e) {
			delete(s.executions, id)
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

func sortNewestFirst(executions []*execution.Execution) {
	sort.Slice(executions, func(i, j int) bool {
		if !executions[i].StartedAt.Equal(executions[j].StartedAt) {
			return executions[i].StartedAt.After(executions[j].StartedAt)
		}
		return executions[i].ID < executions[j].ID
	})
}
