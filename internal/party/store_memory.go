package party

import (
	"context"
	"sync"

	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
)

// InMemoryStore keeps trusted parties in a mutex-guarded map. It is the MVP
// tier; PostgresStore is the production tier.
type InMemoryStore struct {
	mu      sync.RWMutex
	parties map[id.PartyID]*Party
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{parties: make(map[id.PartyID]*Party)}
}

func (s *InMemoryStore) Create(_ context.Context, p *Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parties[p.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := *p
	s.parties[p.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, partyID id.PartyID) (*Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.parties[partyID]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByVault(_ context.Context, vaultID id.VaultID) ([]*Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Party
	for _, p := range s.parties {
		if p.VaultID == vaultID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]*Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Party
	for _, p := range s.parties {
		if p.AccountID == accountID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, accountID id.AccountID, partyID id.PartyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[partyID]
	if !ok || p.AccountID != accountID {
		return sentinel.ErrNotFound
	}
	delete(s.parties, partyID)
	return nil
}

// IsVerifier reports whether the party exists on the vault with the verifier
// role. The verification ledger gates attestation submission on this.
func (s *InMemoryStore) IsVerifier(_ context.Context, vaultID id.VaultID, partyID id.PartyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parties[partyID]
	if !ok {
		return false, nil
	}
	return p.VaultID == vaultID && p.Role == RoleVerifier, nil
}
