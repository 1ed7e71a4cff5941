package dispatch

import (
	"context"
	"errors"
	"fmt"

	"vaultkeeper/internal/execution"
	"vaultkeeper/internal/instruction"
)

// The capability ports. Each posthumous action variant maps to exactly one
// port, so swapping a provider (real mailer, registrar API) touches one
// interface, not the router.

type MessageSender interface {
	SendMessage(ctx context.Context, recipient, subject, body string) error
}

type AccountCloser interface {
	CloseAccount(ctx context.Context, accountRef string) error
}

type AssetTransferrer interface {
	TransferAsset(ctx context.Context, assetRef, recipient string) error
}

type DonationInitiator interface {
	Donate(ctx context.Context, charity, assetRef string) error
}

type Notifier interface {
	Notify(ctx context.Context, recipient, message string) error
}

// Router routes an instruction to the capability port for its action type.
// It implements execution.Dispatcher.
type Router struct {
	Messages  MessageSender
	Accounts  AccountCloser
	Assets    AssetTransferrer
	Donations DonationInitiator
	Notices   Notifier
}

func (r *Router) Dispatch(ctx context.Context, inst *instruction.Instruction) (execution.Outcome, error) {
	var err error
	switch inst.Action {
	case instruction.ActionSendMessage:
		err = r.Messages.SendMessage(ctx, inst.TargetEmail, inst.Title, inst.Message)
	case instruction.ActionDeleteAccount:
		err = r.Accounts.CloseAccount(ctx, inst.AssetRef)
	case instruction.ActionTransferAsset:
		err = r.Assets.TransferAsset(ctx, inst.AssetRef, inst.TargetEmail)
	case instruction.ActionDonate:
		err = r.Donations.Donate(ctx, inst.TargetEmail, inst.AssetRef)
	case instruction.ActionNotify:
		err = r.Notices.Notify(ctx, inst.TargetEmail, inst.Message)
	default:
		// An unknown action can never succeed no matter how often we retry.
		return execution.PermanentFailure, fmt.Errorf("no capability for action type %q", inst.Action)
	}
	if err != nil {
		return classify(err), err
	}
	return execution.Success, nil
}

// PermanentError marks a provider failure that retrying cannot fix, such as
// a rejected recipient. Providers wrap with it to opt out of retry.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func classify(err error) execution.Outcome {
	var perm *PermanentError
	if errors.As(err, &perm) {
		return execution.PermanentFailure
	}
	return execution.TransientFailure
}
