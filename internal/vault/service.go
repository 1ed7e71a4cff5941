package vault

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vaultkeeper/internal/audit"
	"vaultkeeper/internal/platform/metrics"
	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
	"vaultkeeper/pkg/platform/sentinel"
)

// DefaultQuorumThreshold matches the product's multi-signature intent: two
// independent verifiers.
const DefaultQuorumThreshold = 2

// Store is the persistence boundary the state machine needs.
type Store interface {
	Create(ctx context.Context, v *Vault) error
	FindByID(ctx context.Context, vaultID id.VaultID) (*Vault, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Vault, error)
	ListUnlocked(ctx context.Context) ([]*Vault, error)
	TransitionToUnlocked(ctx context.Context, vaultID id.VaultID, unlockedAt time.Time) (bool, error)
}

// QuorumEvaluator decides whether a vault meets its unlock quorum. It is a
// pure read over the verification ledger.
type QuorumEvaluator interface {
	MeetsQuorum(ctx context.Context, vaultID id.VaultID, threshold int) (bool, error)
}

// UnlockSink receives the unlock event exactly once per vault; the
// instruction scheduler implements it.
type UnlockSink interface {
	OnVaultUnlocked(ctx context.Context, vaultID id.VaultID, unlockedAt time.Time) error
}

// EventPublisher streams unlock events to the outside world (Kafka).
type EventPublisher interface {
	PublishVaultUnlocked(ctx context.Context, vaultID id.VaultID, unlockedAt time.Time) error
}

// AuditPublisher records engine actions on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

// Service owns the vault lifecycle. The Active->Unlocked transition fires at
// most once per vault; everything downstream of the transition (scheduling,
// events, audit) runs only on the winning path.
type Service struct {
	store     Store
	quorum    QuorumEvaluator
	scheduler UnlockSink
	events    EventPublisher
	auditor   AuditPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     Clock
	tracer    trace.Tracer

	defaultThreshold int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
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

func WithDefaultThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.defaultThreshold = threshold
		}
	}
}

func NewService(store Store, quorum QuorumEvaluator, scheduler UnlockSink, opts ...Option) *Service {
	s := &Service{
		store:            store,
		quorum:           quorum,
		scheduler:        scheduler,
		logger:           slog.Default(),
		clock:            time.Now,
		tracer:           otel.Tracer("vaultkeeper/vault"),
		defaultThreshold: DefaultQuorumThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new vault in the Active state.
func (s *Service) Create(ctx context.Context, accountID id.AccountID, name, description string, threshold int) (*Vault, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "vault name must not be empty")
	}
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}
	now := s.clock()
	v := &Vault{
		ID:              id.NewVaultID(),
		AccountID:       accountID,
		Name:            name,
		Description:     description,
		State:           StateActive,
		QuorumThreshold: threshold,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, v); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to create vault", err)
	}
	return v, nil
}

// Get returns a vault scoped to its owning account.
func (s *Service) Get(ctx context.Context, accountID id.AccountID, vaultID id.VaultID) (*Vault, error) {
	v, err := s.store.FindByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vault not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load vault", err)
	}
	if v.AccountID != accountID {
		return nil, dErrors.New(dErrors.CodeNotFound, "vault not found")
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, accountID id.AccountID) ([]*Vault, error) {
	return s.store.ListByAccount(ctx, accountID)
}

// IsActive reports whether the account's vault is still in the Active state.
// The instruction service gates edits on this.
func (s *Service) IsActive(ctx context.Context, accountID id.AccountID, vaultID id.VaultID) (bool, error) {
	v, err := s.Get(ctx, accountID, vaultID)
	if err != nil {
		return false, err
	}
	return v.State == StateActive, nil
}

// OnAttestationVerified re-evaluates quorum for the vault and, when the
// threshold is newly met, performs the unlock transition. Safe to call
// concurrently: the store-level compare-and-set elects exactly one winner,
// and only the winner triggers the scheduling pass. Losers observe the
// Unlocked state and return without side effects. Repeated Verified
// attestations after unlock are no-ops.
func (s *Service) OnAttestationVerified(ctx context.Context, vaultID id.VaultID) error {
	ctx, span := s.tracer.Start(ctx, "vault.OnAttestationVerified",
		trace.WithAttributes(attribute.String("vault_id", vaultID.String())))
	defer span.End()

	v, err := s.store.FindByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "vault not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to load vault", err)
	}
	if v.State != StateActive {
		// Already unlocked; idempotent no-op.
		return nil
	}

	met, err := s.quorum.MeetsQuorum(ctx, vaultID, v.QuorumThreshold)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to evaluate quorum", err)
	}
	if !met {
		return nil
	}

	unlockedAt := s.clock()
	won, err := s.store.TransitionToUnlocked(ctx, vaultID, unlockedAt)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to unlock vault", err)
	}
	if !won {
		// A concurrent caller performed the transition; it also owns the
		// scheduling pass.
		return nil
	}

	s.metrics.RecordVaultUnlocked()
	s.logger.InfoContext(ctx, "vault unlocked",
		"vault_id", vaultID.String(),
		"unlocked_at", unlockedAt,
	)
	if s.auditor != nil {
		_ = s.auditor.Emit(ctx, audit.Event{
			Timestamp: unlockedAt,
			VaultID:   vaultID.String(),
			Action:    audit.ActionVaultUnlocked,
			Detail:    "verification quorum reached",
		})
	}
	if s.events != nil {
		if err := s.events.PublishVaultUnlocked(ctx, vaultID, unlockedAt); err != nil {
			s.logger.WarnContext(ctx, "failed to publish unlock event",
				"vault_id", vaultID.String(),
				"error", err,
			)
		}
	}

	if err := s.scheduler.OnVaultUnlocked(ctx, vaultID, unlockedAt); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to schedule instructions", err)
	}
	return nil
}
