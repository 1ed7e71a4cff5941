package audit

import (
	"context"
	"time"
)

// Action names the engine event being recorded.
const (
	ActionAttestationSubmitted = "attestation_submitted"
	ActionAttestationReviewed  = "attestation_reviewed"
	ActionVaultUnlocked        = "vault_unlocked"
	ActionInstructionExecuted  = "instruction_executed"
	ActionInstructionFailed    = "instruction_failed"
	ActionInstructionHeld      = "instruction_held"
)

// Event is emitted from domain logic to capture key engine actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	VaultID   string
	Actor     string
	Action    string
	Subject   string
	Detail    string
}

// Store is the append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByVault(ctx context.Context, vaultID string) ([]Event, error)
}
