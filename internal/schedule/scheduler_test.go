package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"vaultkeeper/internal/instruction"
	id "vaultkeeper/pkg/domain"
)

type SchedulerSuite struct {
	suite.Suite
	store     *instruction.InMemoryStore
	scheduler *Scheduler

	accountID id.AccountID
	vaultID   id.VaultID
	base      time.Time
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.store = instruction.NewInMemoryStore()
	s.scheduler = NewScheduler(s.store)
	s.accountID = id.NewAccountID()
	s.vaultID = id.NewVaultID()
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *SchedulerSuite) addInstruction(vaultID id.VaultID, delayDays int, createdAt time.Time) id.InstructionID {
	inst := &instruction.Instruction{
		ID:        id.NewInstructionID(),
		VaultID:   vaultID,
		AccountID: s.accountID,
		Action:    instruction.ActionSendMessage,
		Title:     "farewell",
		DelayDays: delayDays,
		CreatedAt: createdAt,
	}
	s.Require().NoError(s.store.Create(context.Background(), inst))
	return inst.ID
}

func (s *SchedulerSuite) TestOnVaultUnlocked() {
	ctx := context.Background()

	s.Run("due moments are unlock plus delay in whole days", func() {
		immediate := s.addInstruction(s.vaultID, 0, s.base)
		delayed := s.addInstruction(s.vaultID, 7, s.base.Add(time.Minute))

		s.Require().NoError(s.scheduler.OnVaultUnlocked(ctx, s.vaultID, s.base))

		entry := s.scheduler.PopDue(s.base)
		s.Require().NotNil(entry)
		s.Equal(immediate, entry.InstructionID)
		s.Equal(s.base, entry.DueAt)

		s.Nil(s.scheduler.PopDue(s.base), "delayed instruction must not be due yet")
		s.Nil(s.scheduler.PopDue(s.base.Add(7*24*time.Hour-time.Second)))

		entry = s.scheduler.PopDue(s.base.Add(7 * 24 * time.Hour))
		s.Require().NotNil(entry)
		s.Equal(delayed, entry.InstructionID)
	})

	s.Run("repeat unlock signals do not double-queue", func() {
		s.Require().NoError(s.scheduler.OnVaultUnlocked(ctx, s.vaultID, s.base))
		s.Nil(s.scheduler.PopDue(s.base.Add(30*24*time.Hour)))
	})
}

func (s *SchedulerSuite) TestEqualDueTimesFireInCreationOrder() {
	ctx := context.Background()
	first := s.addInstruction(s.vaultID, 1, s.base)
	second := s.addInstruction(s.vaultID, 1, s.base.Add(time.Second))
	third := s.addInstruction(s.vaultID, 1, s.base.Add(2*time.Second))

	s.Require().NoError(s.scheduler.OnVaultUnlocked(ctx, s.vaultID, s.base))

	due := s.base.Add(24 * time.Hour)
	for _, want := range []id.InstructionID{first, second, third} {
		entry := s.scheduler.PopDue(due)
		s.Require().NotNil(entry)
		s.Equal(want, entry.InstructionID)
	}
	s.Nil(s.scheduler.PopDue(due))
}

func (s *SchedulerSuite) TestTerminalInstructionsAreNotQueued() {
	ctx := context.Background()
	executed := s.addInstruction(s.vaultID, 0, s.base)
	s.Require().NoError(s.store.MarkExecuted(ctx, executed, s.base))
	live := s.addInstruction(s.vaultID, 0, s.base.Add(time.Second))

	s.Require().NoError(s.scheduler.OnVaultUnlocked(ctx, s.vaultID, s.base))

	entry := s.scheduler.PopDue(s.base)
	s.Require().NotNil(entry)
	s.Equal(live, entry.InstructionID)
	s.Nil(s.scheduler.PopDue(s.base))
}

func (s *SchedulerSuite) TestRequeue() {
	ctx := context.Background()
	instructionID := s.addInstruction(s.vaultID, 0, s.base)
	s.Require().NoError(s.scheduler.OnVaultUnlocked(ctx, s.vaultID, s.base))

	entry := s.scheduler.PopDue(s.base)
	s.Require().NotNil(entry)

	retryAt := s.base.Add(time.Minute)
	s.scheduler.Requeue(entry, retryAt)

	s.Nil(s.scheduler.PopDue(s.base))
	next, ok := s.scheduler.NextDue()
	s.Require().True(ok)
	s.Equal(retryAt, next)

	entry = s.scheduler.PopDue(retryAt)
	s.Require().NotNil(entry)
	s.Equal(instructionID, entry.InstructionID)
}

func (s *SchedulerSuite) TestWakeSignal() {
	ctx := context.Background()
	s.addInstruction(s.vaultID, 0, s.base)

	select {
	case <-s.scheduler.Wake():
		s.Fail("wake must not fire before scheduling")
	default:
	}

	s.Require().NoError(s.scheduler.OnVaultUnlocked(ctx, s.vaultID, s.base))

	select {
	case <-s.scheduler.Wake():
	case <-time.After(time.Second):
		s.Fail("wake must fire after scheduling")
	}
}

type fixedUnlocks map[id.VaultID]time.Time

func (f fixedUnlocks) ListUnlockedAt(context.Context) (map[id.VaultID]time.Time, error) {
	return f, nil
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store := instruction.NewInMemoryStore()
	scheduler := NewScheduler(store)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	vaultID := id.NewVaultID()

	inst := &instruction.Instruction{
		ID:        id.NewInstructionID(),
		VaultID:   vaultID,
		AccountID: id.NewAccountID(),
		Action:    instruction.ActionNotify,
		Title:     "notify executor",
		DelayDays: 2,
		CreatedAt: base.Add(-time.Hour),
	}
	require.NoError(t, store.Create(ctx, inst))

	require.NoError(t, scheduler.Restore(ctx, fixedUnlocks{vaultID: base}))

	entry := scheduler.PopDue(base.Add(2 * 24 * time.Hour))
	require.NotNil(t, entry)
	require.Equal(t, inst.ID, entry.InstructionID)

	// Restore already scheduled the vault; a late unlock signal is a no-op.
	require.NoError(t, scheduler.OnVaultUnlocked(ctx, vaultID, base))
	require.Nil(t, scheduler.PopDue(base.Add(30*24*time.Hour)))
}
