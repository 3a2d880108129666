package nonce

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the single-instance backend: a mutex-guarded map with lazy
// expiry. Multi-instance deployments use the Redis backend instead.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]Record
}

func NewMemory() *MemoryStore {
	return NewMemoryTTL(TTL)
}

func NewMemoryTTL(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, records: make(map[string]Record)}
}

func (s *MemoryStore) Issue(_ context.Context, address string) (Record, error) {
	value, err := randomHex()
	if err != nil {
		return Record{}, err
	}
	rec := Record{Value: value, ExpiresAt: time.Now().Add(s.ttl)}
	s.mu.Lock()
	s.records[strings.ToLower(address)] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, address string) (Record, error) {
	key := strings.ToLower(address)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	if time.Now().After(rec.ExpiresAt) {
		delete(s.records, key)
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Consume(_ context.Context, address string) error {
	key := strings.ToLower(address)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return ErrNotFound
	}
	delete(s.records, key)
	if time.Now().After(rec.ExpiresAt) {
		return ErrNotFound
	}
	return nil
}
