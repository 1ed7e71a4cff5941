package verification

import (
	"context"

	id "vaultkeeper/pkg/domain"
)

// VerifiedPartyCounter is the slice of the ledger the evaluator reads.
type VerifiedPartyCounter interface {
	CountDistinctVerifiedParties(ctx context.Context, vaultID id.VaultID) (int, error)
}

// Quorum decides whether a vault meets its unlock quorum. It is a pure read
// over the ledger snapshot: no clock input, so re-running it after every
// status change is idempotent. Quorum counts distinct verifier identities
// holding a Verified attestation, never attestation count: a party
// re-submitting does not raise it, and an old Rejected record neither counts
// nor cancels a newer Verified one.
type Quorum struct {
	ledger VerifiedPartyCounter
}

func NewQuorum(ledger VerifiedPartyCounter) *Quorum {
	return &Quorum{ledger: ledger}
}

func (q *Quorum) MeetsQuorum(ctx context.Context, vaultID id.VaultID, threshold int) (bool, error) {
	count, err := q.ledger.CountDistinctVerifiedParties(ctx, vaultID)
	if err != nil {
		return false, err
	}
	return count >= threshold, nil
}
