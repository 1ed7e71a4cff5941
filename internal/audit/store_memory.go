package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events per vault.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.VaultID] = append(s.events[event.VaultID], event)
	return nil
}

func (s *InMemoryStore) ListByVault(_ context.Context, vaultID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[vaultID]...), nil
}
