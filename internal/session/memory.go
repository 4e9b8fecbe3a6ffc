package session

import (
	"context"
	"sync"
	"time"

	"github.com/municipio-kit/chamados-service/internal/domain"
)

type memoryEntry struct {
	actor     domain.Actor
	expiresAt time.Time
}

// MemoryStore is an in-process Store used by tests and the no-redis
// development mode. Expiry is checked lazily on Get.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, actor domain.Actor, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	s.entries[sessionID] = memoryEntry{actor: actor, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.Actor, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	actor := entry.actor
	return &actor, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
