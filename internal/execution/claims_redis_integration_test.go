//go:build integration

package execution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vaultkeeper/internal/execution"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/testutil/containers"
)

func TestRedisClaims(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))
	claims := execution.NewRedisClaims(rc.Client)

	t.Run("first acquire wins, second owner is refused", func(t *testing.T) {
		instructionID := id.NewInstructionID()

		ok, err := claims.Acquire(ctx, instructionID, "worker-0", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = claims.Acquire(ctx, instructionID, "worker-1", time.Minute)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("expired lease is up for grabs", func(t *testing.T) {
		instructionID := id.NewInstructionID()

		ok, err := claims.Acquire(ctx, instructionID, "worker-0", 100*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		require.Eventually(t, func() bool {
			ok, err := claims.Acquire(ctx, instructionID, "worker-1", time.Minute)
			return err == nil && ok
		}, 2*time.Second, 25*time.Millisecond)
	})

	t.Run("release frees the claim", func(t *testing.T) {
		instructionID := id.NewInstructionID()

		ok, err := claims.Acquire(ctx, instructionID, "worker-0", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, claims.Release(ctx, instructionID, "worker-0"))

		ok, err = claims.Acquire(ctx, instructionID, "worker-1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("release by a non-owner is a no-op", func(t *testing.T) {
		instructionID := id.NewInstructionID()

		ok, err := claims.Acquire(ctx, instructionID, "worker-0", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, claims.Release(ctx, instructionID, "worker-1"))

		ok, err = claims.Acquire(ctx, instructionID, "worker-2", time.Minute)
		require.NoError(t, err)
		require.False(t, ok)
	})
}
