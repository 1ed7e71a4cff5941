package party

import (
	"time"

	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
)

// Role labels what a trusted party may do for a vault. Only verifiers feed
// the unlock quorum; heirs and executors are targeting data for instructions.
type Role string

const (
	RoleHeir     Role = "heir"
	RoleVerifier Role = "verifier"
	RoleExecutor Role = "executor"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleHeir, RoleVerifier, RoleExecutor:
		return Role(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "role must be heir, verifier or executor")
	}
}

// Party is a person the vault owner trusts with a posthumous duty.
type Party struct {
	ID           id.PartyID
	VaultID      id.VaultID
	AccountID    id.AccountID
	Name         string
	Email        string
	Role         Role
	Phone        string
	Relationship string
	CreatedAt    time.Time
}
