package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore окна в памяти процесса. Между инстансами не согласуется.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*Bucket)}
}

func (s *MemoryStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.ResetAt) {
		b = &Bucket{ResetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.Count++

	return *b, nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, b := range s.buckets {
		if !now.Before(b.ResetAt) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed, nil
}

// Len число живых ключей
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
