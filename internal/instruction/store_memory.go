package instruction

import (
	"context"
	"sort"
	"sync"
	"time"

	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
)

// InMemoryStore keeps instructions in a mutex-guarded map. MarkExecuted and
// MarkFailed hold the write lock across check and write, giving the same
// compare-and-set behavior as the guarded UPDATEs in the postgres tier.
type InMemoryStore struct {
	mu           sync.RWMutex
	instructions map[id.InstructionID]*Instruction
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{instructions: make(map[id.InstructionID]*Instruction)}
}

func (s *InMemoryStore) Create(_ context.Context, inst *Instruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instructions[inst.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := *inst
	s.instructions[inst.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, instructionID id.InstructionID) (*Instruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inst, ok := s.instructions[instructionID]; ok {
		clone := *inst
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]*Instruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Instruction
	for _, inst := range s.instructions {
		if inst.AccountID == accountID {
			clone := *inst
			out = append(out, &clone)
		}
	}
	sortByCreation(out)
	return out, nil
}

// ListPendingByVault returns the vault's unexecuted, unfailed, unheld
// instructions in creation order. Creation order is the scheduler's
// deterministic tie-break for equal due times.
func (s *InMemoryStore) ListPendingByVault(_ context.Context, vaultID id.VaultID) ([]*Instruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Instruction
	for _, inst := range s.instructions {
		if inst.VaultID == vaultID && !inst.IsExecuted && inst.FailedAt == nil && inst.HeldAt == nil {
			clone := *inst
			out = append(out, &clone)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, accountID id.AccountID, instructionID id.InstructionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instructions[instructionID]
	if !ok || inst.AccountID != accountID {
		return sentinel.ErrNotFound
	}
	if inst.IsExecuted {
		return sentinel.ErrInvalidState
	}
	delete(s.instructions, instructionID)
	return nil
}

// MarkExecuted flips is_executed exactly once. A second call, or a call on a
// failed record, returns sentinel.ErrInvalidState.
func (s *InMemoryStore) MarkExecuted(_ context.Context, instructionID id.InstructionID, executedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instructions[instructionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if inst.IsExecuted || inst.FailedAt != nil {
		return sentinel.ErrInvalidState
	}
	inst.IsExecuted = true
	stamp := executedAt
	inst.ExecutedAt = &stamp
	return nil
}

// MarkFailed records the permanent-failure terminal state.
func (s *InMemoryStore) MarkFailed(_ context.Context, instructionID id.InstructionID, failedAt time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instructions[instructionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if inst.IsExecuted || inst.FailedAt != nil {
		return sentinel.ErrInvalidState
	}
	stamp := failedAt
	inst.FailedAt = &stamp
	inst.FailureReason = reason
	return nil
}

// Hold parks an instruction after an internal-consistency fault.
func (s *InMemoryStore) Hold(_ context.Context, instructionID id.InstructionID, heldAt time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instructions[instructionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stamp := heldAt
	inst.HeldAt = &stamp
	inst.HoldReason = reason
	return nil
}

func sortByCreation(out []*Instruction) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}
