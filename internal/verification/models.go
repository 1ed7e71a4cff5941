package verification

import (
	"time"

	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
)

// Status is the review outcome of a single attestation. Records are created
// Pending and finalized exactly once; a finalized record never changes.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusVerified, StatusRejected:
		return Status(raw), nil
	case StatusPending:
		return "", dErrors.New(dErrors.CodeInvalidTransition, "cannot transition back to pending")
	default:
		return "", dErrors.New(dErrors.CodeValidation, "status must be verified or rejected")
	}
}

// Evidence describes the material a verifier submits alongside a claim:
// death certificate, obituary, government record and the like.
type Evidence struct {
	Type  string
	URL   string
	Notes string
}

// Verification is one trusted party's attestation of the owner's death,
// with an independent review outcome. The ledger is append-only: correcting
// a mistaken review means submitting a new attestation, never re-reviewing.
type Verification struct {
	ID       id.VerificationID
	VaultID  id.VaultID
	PartyID  id.PartyID
	Evidence Evidence
	Status   Status
	// ReviewedBy is the account that finalized the record.
	ReviewedBy *id.AccountID
	CreatedAt  time.Time
	// DecidedAt is stamped at finalization; always >= CreatedAt.
	DecidedAt *time.Time
}

// Finalized reports whether the record has left Pending.
func (v *Verification) Finalized() bool { return v.Status != StatusPending }
