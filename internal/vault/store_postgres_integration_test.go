//go:build integration

package vault_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vaultkeeper/internal/vault"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
	"vaultkeeper/pkg/testutil/containers"
)

type VaultPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *vault.PostgresStore
}

func TestVaultPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(VaultPostgresSuite))
}

func (s *VaultPostgresSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = vault.NewPostgresStore(s.postgres.DB)
}

func (s *VaultPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "vaults"))
}

func (s *VaultPostgresSuite) newVault(accountID id.AccountID) *vault.Vault {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &vault.Vault{
		ID:              id.NewVaultID(),
		AccountID:       accountID,
		Name:            "estate",
		Description:     "primary estate",
		State:           vault.StateActive,
		QuorumThreshold: 2,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *VaultPostgresSuite) TestCreateAndFind() {
	ctx := context.Background()
	accountID := id.NewAccountID()
	v := s.newVault(accountID)
	s.Require().NoError(s.store.Create(ctx, v))

	got, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(v.Name, got.Name)
	s.Equal(vault.StateActive, got.State)
	s.Nil(got.UnlockedAt)

	s.Run("duplicate id conflicts", func() {
		err := s.store.Create(ctx, v)
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(ctx, id.NewVaultID())
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

// TestConcurrentUnlock drives many simultaneous unlock attempts through the
// database and requires exactly one winner.
func (s *VaultPostgresSuite) TestConcurrentUnlock() {
	ctx := context.Background()
	v := s.newVault(id.NewAccountID())
	s.Require().NoError(s.store.Create(ctx, v))

	const goroutines = 20
	var wg sync.WaitGroup
	var winners atomic.Int32
	unlockedAt := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.store.TransitionToUnlocked(ctx, v.ID, unlockedAt)
			s.NoError(err)
			if won {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())

	got, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(vault.StateUnlocked, got.State)
	s.Require().NotNil(got.UnlockedAt)
	s.True(got.UnlockedAt.Equal(unlockedAt))
}

func (s *VaultPostgresSuite) TestListUnlocked() {
	ctx := context.Background()
	accountID := id.NewAccountID()

	active := s.newVault(accountID)
	s.Require().NoError(s.store.Create(ctx, active))

	unlocked := s.newVault(accountID)
	unlocked.Name = "estate-2"
	s.Require().NoError(s.store.Create(ctx, unlocked))
	won, err := s.store.TransitionToUnlocked(ctx, unlocked.ID, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().True(won)

	got, err := s.store.ListUnlocked(ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(unlocked.ID, got[0].ID)

	byAccount, err := s.store.ListByAccount(ctx, accountID)
	s.Require().NoError(err)
	s.Len(byAccount, 2)
}

func (s *VaultPostgresSuite) TestUnlockUnknownVault() {
	_, err := s.store.TransitionToUnlocked(context.Background(), id.NewVaultID(), time.Now().UTC())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
