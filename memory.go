package whoiscache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. It is unbounded; entries are
// only dropped when a lookup finds them expired.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]CacheEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, domain string) (CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[domain]
	if !ok {
		return CacheEntry{}, ErrCacheMiss
	}
	return e, nil
}

func (s *MemoryStore) Put(_ context.Context, domain string, record LookupRecord, ttl time.Duration) error {
	e := CacheEntry{Record: record, ExpiresAt: s.now().Add(ttl)}
	s.mu.Lock()
	s.entries[domain] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, domain string) error {
	s.mu.Lock()
	delete(s.entries, domain)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
