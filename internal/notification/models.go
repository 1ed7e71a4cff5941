package notification

import (
	"context"
	"time"

	id "vaultkeeper/pkg/domain"
)

// Kind names the engine moment a notification reports.
type Kind string

const (
	KindVaultUnlocked       Kind = "vault_unlocked"
	KindInstructionExecuted Kind = "instruction_executed"
	KindInstructionFailed   Kind = "instruction_failed"
	KindInstructionHeld     Kind = "instruction_held"
)

// Notification is an in-app message for a vault's owning account.
type Notification struct {
	ID        id.NotificationID
	AccountID id.AccountID
	VaultID   id.VaultID
	Kind      Kind
	Message   string
	Read      bool
	CreatedAt time.Time
}

// Store is the persistence boundary for notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Notification, error)
	MarkRead(ctx context.Context, accountID id.AccountID, notificationID id.NotificationID) error
}
