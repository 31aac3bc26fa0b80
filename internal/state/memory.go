package state

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the non-durable fallback used in tests and when no
// state directory is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*Checkpoint
	failures    map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]*Checkpoint),
		failures:    make(map[string]int),
	}
}

func (s *MemoryStore) PutCheckpoint(_ context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *cp
	s.checkpoints[cp.Source] = &clone
	return nil
}

func (s *MemoryStore) GetCheckpoint(_ context.Context, source string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[source]
	if !ok {
		return nil, nil
	}
	clone := *cp
	return &clone, nil
}

func (s *MemoryStore) ListCheckpoints(_ context.Context) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		clone := *cp
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Source < list[j].Source })
	return list, nil
}

func (s *MemoryStore) IncrementFailures(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[source]++
	return s.failures[source], nil
}

func (s *MemoryStore) ResetFailures(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, source)
	return nil
}

func (s *MemoryStore) Failures(_ context.Context, source string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures[source], nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.checkpoints = nil
	s.failures = nil
	s.mu.Unlock()
	return nil
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
