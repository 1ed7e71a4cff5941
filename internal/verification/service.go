package verification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"vaultkeeper/internal/audit"
	"vaultkeeper/internal/platform/metrics"
	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
	"vaultkeeper/pkg/platform/sentinel"
)

// Ledger is the append-only persistence boundary for attestations.
type Ledger interface {
	Append(ctx context.Context, v *Verification) error
	FindByID(ctx context.Context, verificationID id.VerificationID) (*Verification, error)
	ListByVault(ctx context.Context, vaultID id.VaultID) ([]*Verification, error)
	HasPending(ctx context.Context, vaultID id.VaultID, partyID id.PartyID) (bool, error)
	Finalize(ctx context.Context, verificationID id.VerificationID, status Status, reviewer id.AccountID, decidedAt time.Time) (*Verification, error)
}

// PartyDirectory answers whether a party may attest for a vault.
type PartyDirectory interface {
	IsVerifier(ctx context.Context, vaultID id.VaultID, partyID id.PartyID) (bool, error)
}

// UnlockEvaluator is notified after every successful Verified decision; the
// vault state machine implements it.
type UnlockEvaluator interface {
	OnAttestationVerified(ctx context.Context, vaultID id.VaultID) error
}

// AuditPublisher records attestation activity on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

// Service owns the attestation write path: submission and review. It keeps
// the ledger append-only and feeds every Verified decision into the vault
// state machine for quorum re-evaluation.
type Service struct {
	ledger  Ledger
	parties PartyDirectory
	vaults  UnlockEvaluator
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   Clock
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(ledger Ledger, parties PartyDirectory, vaults UnlockEvaluator, opts ...Option) *Service {
	s := &Service{
		ledger:  ledger,
		parties: parties,
		vaults:  vaults,
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit appends a Pending attestation for the vault. Only parties holding
// the verifier role may attest, and a party may not stack a second Pending
// record while one is awaiting review.
func (s *Service) Submit(ctx context.Context, vaultID id.VaultID, partyID id.PartyID, evidence Evidence) (*Verification, error) {
	if strings.TrimSpace(evidence.Type) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence type must not be empty")
	}

	isVerifier, err := s.parties.IsVerifier(ctx, vaultID, partyID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to resolve submitting party", err)
	}
	if !isVerifier {
		return nil, dErrors.New(dErrors.CodeInvalidParty, "submitting party is not a verifier for this vault")
	}

	pending, err := s.ledger.HasPending(ctx, vaultID, partyID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to check outstanding attestations", err)
	}
	if pending {
		return nil, dErrors.New(dErrors.CodeDuplicatePending, "party already has a pending attestation for this vault")
	}

	v := &Verification{
		ID:        id.NewVerificationID(),
		VaultID:   vaultID,
		PartyID:   partyID,
		Evidence:  evidence,
		Status:    StatusPending,
		CreatedAt: s.clock(),
	}
	if err := s.ledger.Append(ctx, v); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to append attestation", err)
	}

	s.metrics.RecordAttestationSubmitted()
	s.logger.InfoContext(ctx, "attestation submitted",
		"verification_id", v.ID.String(),
		"vault_id", vaultID.String(),
		"party_id", partyID.String(),
		"evidence_type", evidence.Type,
	)
	if s.auditor != nil {
		_ = s.auditor.Emit(ctx, audit.Event{
			Timestamp: v.CreatedAt,
			VaultID:   vaultID.String(),
			Actor:     partyID.String(),
			Action:    audit.ActionAttestationSubmitted,
			Subject:   v.ID.String(),
			Detail:    evidence.Type,
		})
	}
	return v, nil
}

// Review finalizes a Pending attestation. The status mutates exactly once:
// Pending->Verified or Pending->Rejected. A finalized record is immutable,
// so re-review returns AlreadyFinalized and a correction requires a fresh
// submission. A Verified decision triggers quorum re-evaluation.
func (s *Service) Review(ctx context.Context, verificationID id.VerificationID, status Status, reviewer id.AccountID) (*Verification, error) {
	if status != StatusVerified && status != StatusRejected {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "status must be verified or rejected")
	}

	v, err := s.ledger.Finalize(ctx, verificationID, status, reviewer, s.clock())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeAlreadyFinalized, "verification has already been reviewed")
		default:
			return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to finalize attestation", err)
		}
	}

	s.metrics.RecordAttestationReviewed(string(status))
	s.logger.InfoContext(ctx, "attestation reviewed",
		"verification_id", v.ID.String(),
		"vault_id", v.VaultID.String(),
		"status", string(status),
	)
	if s.auditor != nil {
		_ = s.auditor.Emit(ctx, audit.Event{
			Timestamp: *v.DecidedAt,
			VaultID:   v.VaultID.String(),
			Actor:     reviewer.String(),
			Action:    audit.ActionAttestationReviewed,
			Subject:   v.ID.String(),
			Detail:    string(status),
		})
	}

	if status == StatusVerified {
		if err := s.vaults.OnAttestationVerified(ctx, v.VaultID); err != nil {
			// The review itself committed; the unlock evaluation failing is a
			// separate fault surfaced to the caller for retry.
			return nil, err
		}
	}
	return v, nil
}

// List returns the attestation history for a vault, oldest first. Rejected
// records stay visible: the ledger never forgets.
func (s *Service) List(ctx context.Context, vaultID id.VaultID) ([]*Verification, error) {
	return s.ledger.ListByVault(ctx, vaultID)
}
