package vault

import (
	"context"
	"sync"
	"time"

	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
)

// InMemoryStore keeps vaults in a mutex-guarded map. The unlock transition
// holds the write lock for the whole check-and-set, which makes it atomic.
type InMemoryStore struct {
	mu     sync.RWMutex
	vaults map[id.VaultID]*Vault
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{vaults: make(map[id.VaultID]*Vault)}
}

func (s *InMemoryStore) Create(_ context.Context, v *Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vaults[v.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := *v
	s.vaults[v.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, vaultID id.VaultID) (*Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.vaults[vaultID]; ok {
		clone := *v
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]*Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Vault
	for _, v := range s.vaults {
		if v.AccountID == accountID {
			clone := *v
			out = append(out, &clone)
		}
	}
	return out, nil
}

// ListUnlocked returns every vault in the terminal state; the scheduler uses
// it to rebuild the due-queue on startup.
func (s *InMemoryStore) ListUnlocked(_ context.Context) ([]*Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Vault
	for _, v := range s.vaults {
		if v.State == StateUnlocked {
			clone := *v
			out = append(out, &clone)
		}
	}
	return out, nil
}

// TransitionToUnlocked performs the Active->Unlocked compare-and-set.
// Exactly one caller wins; everyone else gets won=false and must treat the
// unlock as already handled. UnlockedAt is written only by the winner and
// never overwritten.
func (s *InMemoryStore) TransitionToUnlocked(_ context.Context, vaultID id.VaultID, unlockedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vaults[vaultID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if v.State != StateActive {
		return false, nil
	}
	v.State = StateUnlocked
	stamp := unlockedAt
	v.UnlockedAt = &stamp
	v.UpdatedAt = unlockedAt
	return true, nil
}
