package instruction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
)

// fakeGuard answers IsActive from a set of still-active vaults.
type fakeGuard struct {
	active map[id.VaultID]bool
}

func (g *fakeGuard) IsActive(_ context.Context, _ id.AccountID, vaultID id.VaultID) (bool, error) {
	return g.active[vaultID], nil
}

type InstructionServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	guard   *fakeGuard
	service *Service

	accountID id.AccountID
	vaultID   id.VaultID
	now       time.Time
}

func TestInstructionServiceSuite(t *testing.T) {
	suite.Run(t, new(InstructionServiceSuite))
}

func (s *InstructionServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.accountID = id.NewAccountID()
	s.vaultID = id.NewVaultID()
	s.guard = &fakeGuard{active: map[id.VaultID]bool{s.vaultID: true}}
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.service = NewService(s.store, s.guard,
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *InstructionServiceSuite) TestCreate() {
	ctx := context.Background()
	params := CreateParams{
		VaultID:     s.vaultID,
		Action:      ActionSendMessage,
		Title:       "farewell letter",
		TargetEmail: "heir@example.com",
		Message:     "goodbye",
		DelayDays:   7,
	}

	s.Run("creates while the vault is active", func() {
		inst, err := s.service.Create(ctx, s.accountID, params)
		s.Require().NoError(err)
		s.Equal(s.accountID, inst.AccountID)
		s.Equal(7, inst.DelayDays)
		s.Equal(s.now, inst.CreatedAt)
		s.False(inst.IsExecuted)
	})

	s.Run("empty title fails validation", func() {
		bad := params
		bad.Title = "   "
		_, err := s.service.Create(ctx, s.accountID, bad)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("negative delay fails validation", func() {
		bad := params
		bad.DelayDays = -1
		_, err := s.service.Create(ctx, s.accountID, bad)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unlocked vault refuses new instructions", func() {
		s.guard.active[s.vaultID] = false
		_, err := s.service.Create(ctx, s.accountID, params)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.guard.active[s.vaultID] = true
	})
}

func (s *InstructionServiceSuite) TestDelete() {
	ctx := context.Background()
	inst, err := s.service.Create(ctx, s.accountID, CreateParams{
		VaultID: s.vaultID, Action: ActionNotify, Title: "ping executor",
	})
	s.Require().NoError(err)

	s.Run("deletes an unexecuted instruction", func() {
		s.Require().NoError(s.service.Delete(ctx, s.accountID, inst.ID))
		_, err := s.store.FindByID(ctx, inst.ID)
		s.Error(err)
	})

	s.Run("missing instruction is not found", func() {
		err := s.service.Delete(ctx, s.accountID, inst.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("executed instruction is a conflict", func() {
		kept, err := s.service.Create(ctx, s.accountID, CreateParams{
			VaultID: s.vaultID, Action: ActionDeleteAccount, Title: "close social",
		})
		s.Require().NoError(err)
		s.Require().NoError(s.store.MarkExecuted(ctx, kept.ID, s.now))

		err = s.service.Delete(ctx, s.accountID, kept.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *InstructionServiceSuite) TestParseActionType() {
	for _, raw := range []string{"send_message", "delete_account", "transfer_asset", "donate", "notify"} {
		action, err := ParseActionType(raw)
		s.Require().NoError(err)
		s.Equal(ActionType(raw), action)
	}

	_, err := ParseActionType("self_destruct")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
