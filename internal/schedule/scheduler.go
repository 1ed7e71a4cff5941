package schedule

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"vaultkeeper/internal/instruction"
	"vaultkeeper/internal/platform/metrics"
	id "vaultkeeper/pkg/domain"
)

// InstructionSource enumerates a vault's pending instructions in creation
// order.
type InstructionSource interface {
	ListPendingByVault(ctx context.Context, vaultID id.VaultID) ([]*instruction.Instruction, error)
}

// UnlockedVaultSource lists vaults already unlocked, for queue restoration
// after a restart.
type UnlockedVaultSource interface {
	ListUnlockedAt(ctx context.Context) (map[id.VaultID]time.Time, error)
}

// Scheduler maps vault unlocks onto a time-ordered execution queue. Each
// unlocked vault is scheduled exactly once per process lifetime; an
// instruction's due moment is the unlock moment plus its configured delay
// in whole days.
type Scheduler struct {
	instructions InstructionSource
	metrics      *metrics.Metrics
	logger       *slog.Logger

	mu        sync.Mutex
	queue     dueQueue
	scheduled map[id.VaultID]struct{}
	nextSeq   uint64

	// wake is signalled whenever new work enters the queue so the worker
	// can shorten its poll wait.
	wake chan struct{}
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func NewScheduler(instructions InstructionSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		instructions: instructions,
		logger:       slog.Default(),
		scheduled:    make(map[id.VaultID]struct{}),
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnVaultUnlocked enumerates the vault's pending instructions and queues each
// at unlockedAt plus its delay. Calling it again for the same vault is a
// no-op, so a duplicate unlock signal cannot double-queue work.
func (s *Scheduler) OnVaultUnlocked(ctx context.Context, vaultID id.VaultID, unlockedAt time.Time) error {
	s.mu.Lock()
	if _, done := s.scheduled[vaultID]; done {
		s.mu.Unlock()
		return nil
	}
	s.scheduled[vaultID] = struct{}{}
	s.mu.Unlock()

	pending, err := s.instructions.ListPendingByVault(ctx, vaultID)
	if err != nil {
		s.mu.Lock()
		delete(s.scheduled, vaultID)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	for _, inst := range pending {
		s.nextSeq++
		heap.Push(&s.queue, &Entry{
			InstructionID: inst.ID,
			VaultID:       vaultID,
			DueAt:         unlockedAt.Add(time.Duration(inst.DelayDays) * 24 * time.Hour),
			seq:           s.nextSeq,
		})
	}
	s.mu.Unlock()

	s.metrics.RecordInstructionsScheduled(len(pending))
	s.logger.InfoContext(ctx, "instructions scheduled",
		"vault_id", vaultID.String(),
		"count", len(pending),
		"unlocked_at", unlockedAt,
	)
	s.signal()
	return nil
}

// PopDue removes and returns the earliest entry whose due moment is at or
// before now, or nil when nothing is due yet.
func (s *Scheduler) PopDue(now time.Time) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 || s.queue[0].DueAt.After(now) {
		return nil
	}
	return heap.Pop(&s.queue).(*Entry)
}

// NextDue reports the earliest queued due moment. The second return is false
// when the queue is empty.
func (s *Scheduler) NextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].DueAt, true
}

// Requeue puts an entry back with a new due moment, used for transient
// dispatch failures backing off.
func (s *Scheduler) Requeue(entry *Entry, dueAt time.Time) {
	s.mu.Lock()
	s.nextSeq++
	heap.Push(&s.queue, &Entry{
		InstructionID: entry.InstructionID,
		VaultID:       entry.VaultID,
		DueAt:         dueAt,
		seq:           s.nextSeq,
	})
	s.mu.Unlock()
	s.signal()
}

// Wake returns the channel the execution worker selects on to pick up newly
// queued work without waiting out its poll interval.
func (s *Scheduler) Wake() <-chan struct{} {
	return s.wake
}

// Restore rebuilds the queue from vaults that unlocked before this process
// started. It runs once at startup, before the workers.
func (s *Scheduler) Restore(ctx context.Context, vaults UnlockedVaultSource) error {
	unlocked, err := vaults.ListUnlockedAt(ctx)
	if err != nil {
		return err
	}
	for vaultID, unlockedAt := range unlocked {
		if err := s.OnVaultUnlocked(ctx, vaultID, unlockedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
