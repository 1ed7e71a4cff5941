package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"vaultkeeper/internal/execution"
	"vaultkeeper/internal/instruction"
	id "vaultkeeper/pkg/domain"
)

// recordingProviders captures the single call each port receives.
type recordingProviders struct {
	calls []string
	err   error
}

func (p *recordingProviders) record(call string) error {
	p.calls = append(p.calls, call)
	return p.err
}

func (p *recordingProviders) SendMessage(_ context.Context, recipient, subject, body string) error {
	return p.record("send:" + recipient + ":" + subject + ":" + body)
}

func (p *recordingProviders) CloseAccount(_ context.Context, accountRef string) error {
	return p.record("close:" + accountRef)
}

func (p *recordingProviders) TransferAsset(_ context.Context, assetRef, recipient string) error {
	return p.record("transfer:" + assetRef + ":" + recipient)
}

func (p *recordingProviders) Donate(_ context.Context, charity, assetRef string) error {
	return p.record("donate:" + charity + ":" + assetRef)
}

func (p *recordingProviders) Notify(_ context.Context, recipient, message string) error {
	return p.record("notify:" + recipient + ":" + message)
}

func newRouter(p *recordingProviders) *Router {
	return &Router{Messages: p, Accounts: p, Assets: p, Donations: p, Notices: p}
}

func newInstruction(action instruction.ActionType) *instruction.Instruction {
	return &instruction.Instruction{
		ID:          id.NewInstructionID(),
		VaultID:     id.NewVaultID(),
		AccountID:   id.NewAccountID(),
		Action:      action,
		Title:       "farewell",
		TargetEmail: "heir@example.com",
		AssetRef:    "acct-42",
		Message:     "goodbye",
	}
}

func TestRouterRoutesByAction(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		action instruction.ActionType
		want   string
	}{
		{instruction.ActionSendMessage, "send:heir@example.com:farewell:goodbye"},
		{instruction.ActionDeleteAccount, "close:acct-42"},
		{instruction.ActionTransferAsset, "transfer:acct-42:heir@example.com"},
		{instruction.ActionDonate, "donate:heir@example.com:acct-42"},
		{instruction.ActionNotify, "notify:heir@example.com:goodbye"},
	}
	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			providers := &recordingProviders{}
			outcome, err := newRouter(providers).Dispatch(ctx, newInstruction(tc.action))
			require.NoError(t, err)
			require.Equal(t, execution.Success, outcome)
			require.Equal(t, []string{tc.want}, providers.calls)
		})
	}
}

func TestRouterClassifiesFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("provider errors default to transient", func(t *testing.T) {
		providers := &recordingProviders{err: errors.New("connection refused")}
		outcome, err := newRouter(providers).Dispatch(ctx, newInstruction(instruction.ActionSendMessage))
		require.Error(t, err)
		require.Equal(t, execution.TransientFailure, outcome)
	})

	t.Run("wrapped permanent errors opt out of retry", func(t *testing.T) {
		providers := &recordingProviders{err: &PermanentError{Err: errors.New("recipient rejected")}}
		outcome, err := newRouter(providers).Dispatch(ctx, newInstruction(instruction.ActionNotify))
		require.Error(t, err)
		require.Equal(t, execution.PermanentFailure, outcome)
	})

	t.Run("unknown action is permanent and calls no provider", func(t *testing.T) {
		providers := &recordingProviders{}
		outcome, err := newRouter(providers).Dispatch(ctx, newInstruction(instruction.ActionType("self_destruct")))
		require.Error(t, err)
		require.Equal(t, execution.PermanentFailure, outcome)
		require.Empty(t, providers.calls)
	})
}
