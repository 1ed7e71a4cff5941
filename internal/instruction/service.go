package instruction

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
	"vaultkeeper/pkg/platform/sentinel"
)

// Store is the persistence boundary for legacy instructions.
type Store interface {
	Create(ctx context.Context, inst *Instruction) error
	FindByID(ctx context.Context, instructionID id.InstructionID) (*Instruction, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Instruction, error)
	ListPendingByVault(ctx context.Context, vaultID id.VaultID) ([]*Instruction, error)
	Delete(ctx context.Context, accountID id.AccountID, instructionID id.InstructionID) error
}

// VaultGuard tells the service whether a vault still accepts edits. The
// vault service implements it; instructions are immutable once the vault
// leaves Active so a triggered estate cannot be tampered with.
type VaultGuard interface {
	IsActive(ctx context.Context, accountID id.AccountID, vaultID id.VaultID) (bool, error)
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

// Service owns instruction authoring. Execution-side mutation goes through
// the worker, never through here.
type Service struct {
	store  Store
	vaults VaultGuard
	logger *slog.Logger
	clock  Clock
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(store Store, vaults VaultGuard, opts ...Option) *Service {
	s := &Service{store: store, vaults: vaults, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the owner-authored instruction fields.
type CreateParams struct {
	VaultID     id.VaultID
	Action      ActionType
	Title       string
	TargetEmail string
	AssetRef    string
	Message     string
	DelayDays   int
}

// Create authors a new instruction while the vault is still Active.
func (s *Service) Create(ctx context.Context, accountID id.AccountID, params CreateParams) (*Instruction, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "instruction title must not be empty")
	}
	if params.DelayDays < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "delay_days must not be negative")
	}

	active, err := s.vaults.IsActive(ctx, accountID, params.VaultID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, dErrors.New(dErrors.CodeConflict, "vault is no longer active; instructions are immutable")
	}

	inst := &Instruction{
		ID:          id.NewInstructionID(),
		VaultID:     params.VaultID,
		AccountID:   accountID,
		Action:      params.Action,
		Title:       params.Title,
		TargetEmail: params.TargetEmail,
		AssetRef:    params.AssetRef,
		Message:     params.Message,
		DelayDays:   params.DelayDays,
		CreatedAt:   s.clock(),
	}
	if err := s.store.Create(ctx, inst); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to create instruction", err)
	}
	s.logger.InfoContext(ctx, "instruction created",
		"instruction_id", inst.ID.String(),
		"vault_id", params.VaultID.String(),
		"action", string(params.Action),
		"delay_days", params.DelayDays,
	)
	return inst, nil
}

func (s *Service) List(ctx context.Context, accountID id.AccountID) ([]*Instruction, error) {
	return s.store.ListByAccount(ctx, accountID)
}

// Delete removes an unexecuted instruction. Executed records are part of the
// estate's history and stay.
func (s *Service) Delete(ctx context.Context, accountID id.AccountID, instructionID id.InstructionID) error {
	err := s.store.Delete(ctx, accountID, instructionID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "instruction not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "executed instructions cannot be deleted")
	default:
		return dErrors.Wrap(dErrors.CodeInternal, "failed to delete instruction", err)
	}
}
