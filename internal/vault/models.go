package vault

import (
	"time"

	id "vaultkeeper/pkg/domain"
)

// State is the vault lifecycle state owned by the state machine.
//
// Active is initial. Unlocking is the transient claim window during the
// unlock compare-and-set; both stores collapse it into the atomic
// Active->Unlocked write, so it is never observable from the outside.
// Unlocked is terminal for this engine.
type State string

const (
	StateActive    State = "active"
	StateUnlocking State = "unlocking"
	StateUnlocked  State = "unlocked"
)

// Vault owns the lifecycle of one person's digital legacy.
type Vault struct {
	ID          id.VaultID
	AccountID   id.AccountID
	Name        string
	Description string
	State       State
	// QuorumThreshold is the count of distinct verifiers whose attestations
	// must be Verified before the vault unlocks.
	QuorumThreshold int
	// UnlockedAt is set exactly once, at the Active->Unlocked transition.
	UnlockedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Unlocked reports whether the vault has reached its terminal state.
func (v *Vault) Unlocked() bool { return v.State == StateUnlocked }
