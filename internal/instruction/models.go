package instruction

import (
	"time"

	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
)

// ActionType is the closed set of posthumous actions. Dispatch routes each
// variant to its own capability port; nothing matches on raw strings past
// the parse boundary.
type ActionType string

const (
	ActionSendMessage   ActionType = "send_message"
	ActionDeleteAccount ActionType = "delete_account"
	ActionTransferAsset ActionType = "transfer_asset"
	ActionDonate        ActionType = "donate"
	ActionNotify        ActionType = "notify"
)

func ParseActionType(raw string) (ActionType, error) {
	switch ActionType(raw) {
	case ActionSendMessage, ActionDeleteAccount, ActionTransferAsset, ActionDonate, ActionNotify:
		return ActionType(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown action type: "+raw)
	}
}

// Instruction is an owner-authored action that runs only after the vault
// unlocks, delayed by DelayDays whole days from the unlock moment. The
// action and delay are immutable once the vault leaves Active.
type Instruction struct {
	ID        id.InstructionID
	VaultID   id.VaultID
	AccountID id.AccountID
	Action    ActionType
	Title     string
	// TargetEmail addresses send_message/notify/donate variants; AssetRef
	// names the asset for transfer_asset/delete_account.
	TargetEmail string
	AssetRef    string
	Message     string
	DelayDays   int
	// IsExecuted is monotonic: false->true, never reversed.
	IsExecuted bool
	ExecutedAt *time.Time
	// FailedAt marks the permanent-failure terminal state; never retried.
	FailedAt      *time.Time
	FailureReason string
	// HeldAt marks an internal-consistency fault: the instruction was due
	// but an invariant check failed, so it is parked for operator attention.
	HeldAt     *time.Time
	HoldReason string
	CreatedAt  time.Time
}

// Terminal reports whether the instruction can never execute again.
func (i *Instruction) Terminal() bool {
	return i.IsExecuted || i.FailedAt != nil
}
