package party

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"vaultkeeper/internal/vault"
	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
	"vaultkeeper/pkg/platform/sentinel"
)

// Store is the persistence boundary for trusted parties.
type Store interface {
	Create(ctx context.Context, p *Party) error
	FindByID(ctx context.Context, partyID id.PartyID) (*Party, error)
	ListByVault(ctx context.Context, vaultID id.VaultID) ([]*Party, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Party, error)
	Delete(ctx context.Context, accountID id.AccountID, partyID id.PartyID) error
	IsVerifier(ctx context.Context, vaultID id.VaultID, partyID id.PartyID) (bool, error)
}

// VaultDirectory resolves vaults so party writes stay scoped to vaults the
// account actually owns.
type VaultDirectory interface {
	FindByID(ctx context.Context, vaultID id.VaultID) (*vault.Vault, error)
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

// Service owns trusted-party management.
type Service struct {
	store  Store
	vaults VaultDirectory
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

func NewService(store Store, vaults VaultDirectory, opts ...Option) *Service {
	s := &Service{store: store, vaults: vaults, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the owner-authored party fields.
type CreateParams struct {
	VaultID      id.VaultID
	Name         string
	Email        string
	Role         Role
	Phone        string
	Relationship string
}

func (s *Service) Create(ctx context.Context, accountID id.AccountID, params CreateParams) (*Party, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "party name must not be empty")
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "party email is not a valid address")
	}

	v, err := s.vaults.FindByID(ctx, params.VaultID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vault not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load vault", err)
	}
	if v.AccountID != accountID {
		return nil, dErrors.New(dErrors.CodeNotFound, "vault not found")
	}

	p := &Party{
		ID:           id.NewPartyID(),
		VaultID:      params.VaultID,
		AccountID:    accountID,
		Name:         params.Name,
		Email:        params.Email,
		Role:         params.Role,
		Phone:        params.Phone,
		Relationship: params.Relationship,
		CreatedAt:    s.clock(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to create party", err)
	}
	s.logger.InfoContext(ctx, "trusted party created",
		"party_id", p.ID.String(),
		"vault_id", params.VaultID.String(),
		"role", string(params.Role),
	)
	return p, nil
}

func (s *Service) List(ctx context.Context, accountID id.AccountID) ([]*Party, error) {
	return s.store.ListByAccount(ctx, accountID)
}

func (s *Service) Delete(ctx context.Context, accountID id.AccountID, partyID id.PartyID) error {
	if err := s.store.Delete(ctx, accountID, partyID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "party not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to delete party", err)
	}
	return nil
}
