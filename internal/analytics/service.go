package analytics

import (
	"context"

	"vaultkeeper/internal/instruction"
	"vaultkeeper/internal/party"
	"vaultkeeper/internal/vault"
	"vaultkeeper/internal/verification"
	id "vaultkeeper/pkg/domain"
)

// The read-side sources the dashboard aggregates over. Each is a thin slice
// of an existing store.

type VaultSource interface {
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*vault.Vault, error)
}

type PartySource interface {
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*party.Party, error)
}

type InstructionSource interface {
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*instruction.Instruction, error)
}

type VerificationSource interface {
	ListByVault(ctx context.Context, vaultID id.VaultID) ([]*verification.Verification, error)
}

// Dashboard is the per-account summary the product's overview page renders.
type Dashboard struct {
	TotalVaults    int `json:"total_vaults"`
	UnlockedVaults int `json:"unlocked_vaults"`

	TotalParties int `json:"total_parties"`
	Verifiers    int `json:"verifiers"`

	TotalInstructions    int `json:"total_instructions"`
	ExecutedInstructions int `json:"executed_instructions"`
	FailedInstructions   int `json:"failed_instructions"`
	PendingInstructions  int `json:"pending_instructions"`

	PendingVerifications  int `json:"pending_verifications"`
	VerifiedVerifications int `json:"verified_verifications"`
	RejectedVerifications int `json:"rejected_verifications"`
}

// Service aggregates engine state into a per-account dashboard.
type Service struct {
	vaults        VaultSource
	parties       PartySource
	instructions  InstructionSource
	verifications VerificationSource
}

func NewService(vaults VaultSource, parties PartySource, instructions InstructionSource, verifications VerificationSource) *Service {
	return &Service{vaults: vaults, parties: parties, instructions: instructions, verifications: verifications}
}

func (s *Service) Dashboard(ctx context.Context, accountID id.AccountID) (*Dashboard, error) {
	var d Dashboard

	vaults, err := s.vaults.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	d.TotalVaults = len(vaults)
	for _, v := range vaults {
		if v.State == vault.StateUnlocked {
			d.UnlockedVaults++
		}
	}

	parties, err := s.parties.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	d.TotalParties = len(parties)
	for _, p := range parties {
		if p.Role == party.RoleVerifier {
			d.Verifiers++
		}
	}

	instructions, err := s.instructions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	d.TotalInstructions = len(instructions)
	for _, inst := range instructions {
		switch {
		case inst.IsExecuted:
			d.ExecutedInstructions++
		case inst.FailedAt != nil:
			d.FailedInstructions++
		default:
			d.PendingInstructions++
		}
	}

	for _, v := range vaults {
		verifications, err := s.verifications.ListByVault(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		for _, ver := range verifications {
			switch ver.Status {
			case verification.StatusPending:
				d.PendingVerifications++
			case verification.StatusVerified:
				d.VerifiedVerifications++
			case verification.StatusRejected:
				d.RejectedVerifications++
			}
		}
	}

	return &d, nil
}
