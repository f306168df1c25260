package results

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a Store backed by a map, used in tests and by the CLI.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.records[rec.RequestID]; ok && cur.Terminal() {
		return ErrFinal
	}
	s.records[rec.RequestID] = rec
	return nil
}

func (s *MemoryStore) Reserve(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.RequestID]; ok {
		return ErrExists
	}
	s.records[rec.RequestID] = rec
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.records[requestID]; ok && !cur.Terminal() {
		delete(s.records, requestID)
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, requestID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[requestID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
