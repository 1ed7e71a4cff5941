package notification

import (
	"context"
	"sort"
	"sync"

	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications in a mutex-guarded map.
type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]*Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[id.NotificationID]*Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := *n
	s.notifications[n.ID] = &clone
	return nil
}

// ListByAccount returns the account's notifications, newest first.
func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Notification
	for _, n := range s.notifications {
		if n.AccountID == accountID {
			clone := *n
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, accountID id.AccountID, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok || n.AccountID != accountID {
		return sentinel.ErrNotFound
	}
	n.Read = true
	return nil
}
