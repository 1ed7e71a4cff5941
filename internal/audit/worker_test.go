package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// captureSink records fanned-out events, optionally failing.
type captureSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (c *captureSink) OnAuditEvent(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestAuditPipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewInMemoryStore()
	publisher := NewPublisher(8)
	sink := &captureSink{}
	worker := NewWorker(store, publisher.Inbox(), nil, sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	vaultID := "vault-1"
	require.NoError(t, publisher.Emit(ctx, Event{
		VaultID: vaultID,
		Action:  ActionVaultUnlocked,
	}))
	require.NoError(t, publisher.Emit(ctx, Event{
		VaultID: vaultID,
		Action:  ActionInstructionExecuted,
		Subject: "inst-1",
	}))

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)

	events, err := store.ListByVault(ctx, vaultID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, ActionVaultUnlocked, events[0].Action)
	require.False(t, events[0].Timestamp.IsZero(), "emit stamps a missing timestamp")

	cancel()
	<-done
}

// A failing sink must not stop persistence or later events.
func TestAuditSinkFailureIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewInMemoryStore()
	publisher := NewPublisher(8)
	broken := &captureSink{err: errors.New("inbox full")}
	healthy := &captureSink{}
	worker := NewWorker(store, publisher.Inbox(), nil, broken, healthy)

	go func() { _ = worker.Run(ctx) }()

	require.NoError(t, publisher.Emit(ctx, Event{VaultID: "vault-1", Action: ActionInstructionFailed}))

	require.Eventually(t, func() bool { return healthy.count() == 1 }, time.Second, 5*time.Millisecond)

	events, err := store.ListByVault(ctx, "vault-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}
