package verification

import (
	"context"
	"sort"
	"sync"
	"time"

	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
)

// InMemoryStore is the mutex-guarded ledger tier. Finalize holds the write
// lock across the status check and the write, which makes it a
// compare-and-set: concurrent reviewers get sentinel.ErrInvalidState.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.VerificationID]*Verification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.VerificationID]*Verification)}
}

func (s *InMemoryStore) Append(_ context.Context, v *Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[v.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := *v
	s.records[v.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, verificationID id.VerificationID) (*Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.records[verificationID]; ok {
		clone := *v
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByVault(_ context.Context, vaultID id.VaultID) ([]*Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Verification
	for _, v := range s.records {
		if v.VaultID == vaultID {
			clone := *v
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// HasPending reports whether the party already has an outstanding Pending
// attestation for the vault.
func (s *InMemoryStore) HasPending(_ context.Context, vaultID id.VaultID, partyID id.PartyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.records {
		if v.VaultID == vaultID && v.PartyID == partyID && v.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

// Finalize moves a Pending record to its terminal status. It is the
// row-level compare-and-set guarding the AlreadyFinalized contract.
func (s *InMemoryStore) Finalize(_ context.Context, verificationID id.VerificationID, status Status, reviewer id.AccountID, decidedAt time.Time) (*Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[verificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if v.Status != StatusPending {
		return nil, sentinel.ErrInvalidState
	}
	if decidedAt.Before(v.CreatedAt) {
		decidedAt = v.CreatedAt
	}
	v.Status = status
	v.ReviewedBy = &reviewer
	v.DecidedAt = &decidedAt
	clone := *v
	return &clone, nil
}

// CountDistinctVerifiedParties returns the number of distinct parties with a
// Verified attestation for the vault. Rejected and Pending records never
// count; a party's old Rejected record does not cancel a newer Verified one.
func (s *InMemoryStore) CountDistinctVerifiedParties(_ context.Context, vaultID id.VaultID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.PartyID]struct{})
	for _, v := range s.records {
		if v.VaultID == vaultID && v.Status == StatusVerified {
			seen[v.PartyID] = struct{}{}
		}
	}
	return len(seen), nil
}
