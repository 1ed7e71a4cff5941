package execution_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"vaultkeeper/internal/execution"
	"vaultkeeper/internal/execution/mocks"
	"vaultkeeper/internal/instruction"
	"vaultkeeper/internal/schedule"
	"vaultkeeper/internal/vault"
	id "vaultkeeper/pkg/domain"
)

type workerFixture struct {
	vaults       *vault.InMemoryStore
	instructions *instruction.InMemoryStore
	scheduler    *schedule.Scheduler
	dispatcher   *mocks.MockDispatcher
	worker       *execution.Worker

	vaultID    id.VaultID
	accountID  id.AccountID
	unlockedAt time.Time
}

// newWorkerFixture builds an unlocked vault with one due instruction and a
// worker tuned for fast test turnarounds.
func newWorkerFixture(t *testing.T, unlocked bool) *workerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &workerFixture{
		vaults:       vault.NewInMemoryStore(),
		instructions: instruction.NewInMemoryStore(),
		dispatcher:   mocks.NewMockDispatcher(ctrl),
		vaultID:      id.NewVaultID(),
		accountID:    id.NewAccountID(),
		unlockedAt:   time.Now().Add(-time.Minute),
	}
	f.scheduler = schedule.NewScheduler(f.instructions)

	v := &vault.Vault{
		ID:              f.vaultID,
		AccountID:       f.accountID,
		Name:            "estate",
		State:           vault.StateActive,
		QuorumThreshold: 2,
		CreatedAt:       f.unlockedAt.Add(-time.Hour),
		UpdatedAt:       f.unlockedAt.Add(-time.Hour),
	}
	require.NoError(t, f.vaults.Create(context.Background(), v))
	if unlocked {
		won, err := f.vaults.TransitionToUnlocked(context.Background(), f.vaultID, f.unlockedAt)
		require.NoError(t, err)
		require.True(t, won)
	}

	f.worker = execution.NewWorker(f.scheduler, f.instructions, f.vaults,
		execution.NewInMemoryClaims(), f.dispatcher,
		execution.WithIntervals(5*time.Millisecond, 50*time.Millisecond, time.Second, 5*time.Millisecond),
	)
	return f
}

func (f *workerFixture) addDueInstruction(t *testing.T) id.InstructionID {
	t.Helper()
	inst := &instruction.Instruction{
		ID:        id.NewInstructionID(),
		VaultID:   f.vaultID,
		AccountID: f.accountID,
		Action:    instruction.ActionSendMessage,
		Title:     "farewell",
		DelayDays: 0,
		CreatedAt: f.unlockedAt.Add(-time.Hour),
	}
	require.NoError(t, f.instructions.Create(context.Background(), inst))
	return inst.ID
}

func (f *workerFixture) runPool(t *testing.T, count int) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.worker.RunPool(ctx, count)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestWorkerExecutesExactlyOnce(t *testing.T) {
	f := newWorkerFixture(t, true)
	instructionID := f.addDueInstruction(t)

	// Two workers share the queue; the dispatch must still happen once.
	f.dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		Return(execution.Success, nil).
		Times(1)

	require.NoError(t, f.scheduler.OnVaultUnlocked(context.Background(), f.vaultID, f.unlockedAt))
	f.runPool(t, 2)

	require.Eventually(t, func() bool {
		inst, err := f.instructions.FindByID(context.Background(), instructionID)
		return err == nil && inst.IsExecuted
	}, 2*time.Second, 5*time.Millisecond)

	inst, err := f.instructions.FindByID(context.Background(), instructionID)
	require.NoError(t, err)
	require.NotNil(t, inst.ExecutedAt)
	require.Nil(t, inst.FailedAt)
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	f := newWorkerFixture(t, true)
	instructionID := f.addDueInstruction(t)

	transient := errors.New("smtp connection refused")
	gomock.InOrder(
		f.dispatcher.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Return(execution.TransientFailure, transient).
			Times(3),
		f.dispatcher.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Return(execution.Success, nil).
			Times(1),
	)

	require.NoError(t, f.scheduler.OnVaultUnlocked(context.Background(), f.vaultID, f.unlockedAt))
	f.runPool(t, 1)

	require.Eventually(t, func() bool {
		inst, err := f.instructions.FindByID(context.Background(), instructionID)
		return err == nil && inst.IsExecuted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWorkerMarksPermanentFailuresTerminal(t *testing.T) {
	f := newWorkerFixture(t, true)
	instructionID := f.addDueInstruction(t)

	f.dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		Return(execution.PermanentFailure, errors.New("recipient address rejected")).
		Times(1)

	require.NoError(t, f.scheduler.OnVaultUnlocked(context.Background(), f.vaultID, f.unlockedAt))
	f.runPool(t, 1)

	require.Eventually(t, func() bool {
		inst, err := f.instructions.FindByID(context.Background(), instructionID)
		return err == nil && inst.FailedAt != nil
	}, 2*time.Second, 5*time.Millisecond)

	inst, err := f.instructions.FindByID(context.Background(), instructionID)
	require.NoError(t, err)
	require.False(t, inst.IsExecuted)
	require.Equal(t, "recipient address rejected", inst.FailureReason)

	// A terminal instruction never dispatches again even if requeued.
	entry := &schedule.Entry{InstructionID: instructionID, VaultID: f.vaultID}
	f.scheduler.Requeue(entry, time.Now())
	time.Sleep(50 * time.Millisecond)
}

func TestWorkerTreatsDispatchTimeoutAsTransient(t *testing.T) {
	f := newWorkerFixture(t, true)
	instructionID := f.addDueInstruction(t)

	gomock.InOrder(
		f.dispatcher.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ *instruction.Instruction) (execution.Outcome, error) {
				<-ctx.Done()
				return execution.Success, ctx.Err()
			}),
		f.dispatcher.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Return(execution.Success, nil),
	)

	require.NoError(t, f.scheduler.OnVaultUnlocked(context.Background(), f.vaultID, f.unlockedAt))
	f.runPool(t, 1)

	require.Eventually(t, func() bool {
		inst, err := f.instructions.FindByID(context.Background(), instructionID)
		return err == nil && inst.IsExecuted
	}, 2*time.Second, 5*time.Millisecond)
}

// TestWorkerHoldsWhenVaultNotUnlocked covers the bookkeeping-fault path: an
// entry comes due while its vault is still Active. The worker must never
// dispatch; it parks the instruction for an operator.
func TestWorkerHoldsWhenVaultNotUnlocked(t *testing.T) {
	f := newWorkerFixture(t, false)
	instructionID := f.addDueInstruction(t)

	// No Dispatch expectation: any call fails the test.

	require.NoError(t, f.scheduler.OnVaultUnlocked(context.Background(), f.vaultID, f.unlockedAt))
	f.runPool(t, 1)

	require.Eventually(t, func() bool {
		inst, err := f.instructions.FindByID(context.Background(), instructionID)
		return err == nil && inst.HeldAt != nil
	}, 2*time.Second, 5*time.Millisecond)

	inst, err := f.instructions.FindByID(context.Background(), instructionID)
	require.NoError(t, err)
	require.False(t, inst.IsExecuted)
	require.Equal(t, "vault not unlocked at execution time", inst.HoldReason)
}

func TestWorkerSkipsDeletedInstructions(t *testing.T) {
	f := newWorkerFixture(t, true)
	instructionID := f.addDueInstruction(t)

	require.NoError(t, f.scheduler.OnVaultUnlocked(context.Background(), f.vaultID, f.unlockedAt))
	require.NoError(t, f.instructions.Delete(context.Background(), f.accountID, instructionID))

	// No Dispatch expectation: the deleted instruction must be dropped.
	f.runPool(t, 1)
	time.Sleep(50 * time.Millisecond)
}
