package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vaultkeeper/internal/audit"
	"vaultkeeper/internal/vault"
	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
	"vaultkeeper/pkg/platform/sentinel"
)

// VaultOwnerLookup resolves a vault to its owning account, so engine events
// keyed by vault reach the right inbox.
type VaultOwnerLookup interface {
	FindByID(ctx context.Context, vaultID id.VaultID) (*vault.Vault, error)
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

// Service writes in-app notifications for vault owners. It implements
// audit.Sink: the audit worker feeds it every persisted engine event and it
// keeps the ones an owner would want to hear about.
type Service struct {
	store  Store
	vaults VaultOwnerLookup
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

func NewService(store Store, vaults VaultOwnerLookup, opts ...Option) *Service {
	s := &Service{store: store, vaults: vaults, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var kindByAction = map[string]Kind{
	audit.ActionVaultUnlocked:       KindVaultUnlocked,
	audit.ActionInstructionExecuted: KindInstructionExecuted,
	audit.ActionInstructionFailed:   KindInstructionFailed,
	audit.ActionInstructionHeld:     KindInstructionHeld,
}

var messageByKind = map[Kind]string{
	KindVaultUnlocked:       "Your vault has been unlocked after verification quorum was reached.",
	KindInstructionExecuted: "A legacy instruction has been executed.",
	KindInstructionFailed:   "A legacy instruction failed permanently and will not be retried.",
	KindInstructionHeld:     "A legacy instruction was held for review.",
}

// OnAuditEvent implements audit.Sink. Attestation traffic is deliberately
// not notified; owners hear about outcomes, not every review.
func (s *Service) OnAuditEvent(ctx context.Context, event audit.Event) error {
	kind, ok := kindByAction[event.Action]
	if !ok {
		return nil
	}
	vaultID, err := id.ParseVaultID(event.VaultID)
	if err != nil {
		return err
	}
	v, err := s.vaults.FindByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}

	n := &Notification{
		ID:        id.NewNotificationID(),
		AccountID: v.AccountID,
		VaultID:   vaultID,
		Kind:      kind,
		Message:   messageByKind[kind],
		CreatedAt: s.clock(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "notification created",
		"notification_id", n.ID.String(),
		"account_id", n.AccountID.String(),
		"kind", string(kind),
	)
	return nil
}

// List returns the account's notifications, newest first.
func (s *Service) List(ctx context.Context, accountID id.AccountID) ([]*Notification, error) {
	return s.store.ListByAccount(ctx, accountID)
}

// MarkRead flags a notification as read.
func (s *Service) MarkRead(ctx context.Context, accountID id.AccountID, notificationID id.NotificationID) error {
	if err := s.store.MarkRead(ctx, accountID, notificationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to mark notification read", err)
	}
	return nil
}
