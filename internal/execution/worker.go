package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"vaultkeeper/internal/audit"
	"vaultkeeper/internal/instruction"
	"vaultkeeper/internal/platform/metrics"
	"vaultkeeper/internal/schedule"
	"vaultkeeper/internal/vault"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
)

// InstructionStore is the slice of the instruction store the worker mutates.
type InstructionStore interface {
	FindByID(ctx context.Context, instructionID id.InstructionID) (*instruction.Instruction, error)
	MarkExecuted(ctx context.Context, instructionID id.InstructionID, executedAt time.Time) error
	MarkFailed(ctx context.Context, instructionID id.InstructionID, failedAt time.Time, reason string) error
	Hold(ctx context.Context, instructionID id.InstructionID, heldAt time.Time, reason string) error
}

// VaultReader lets the worker re-check vault state at execution time.
type VaultReader interface {
	FindByID(ctx context.Context, vaultID id.VaultID) (*vault.Vault, error)
}

// EventPublisher streams execution events to the outside world (Kafka).
type EventPublisher interface {
	PublishInstructionExecuted(ctx context.Context, instructionID id.InstructionID, vaultID id.VaultID, executedAt time.Time) error
}

// AuditPublisher records execution outcomes on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

// Worker drains the due queue and executes instructions exactly once. The
// claim lease keeps concurrent workers off the same instruction, and the
// store-level compare-and-set on MarkExecuted is the last line of defense
// when a lease expires mid-flight.
type Worker struct {
	scheduler    *schedule.Scheduler
	instructions InstructionStore
	vaults       VaultReader
	claims       ClaimStore
	dispatcher   Dispatcher
	events       EventPublisher
	auditor      AuditPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	clock        Clock
	tracer       trace.Tracer

	scanInterval    time.Duration
	dispatchTimeout time.Duration
	claimTTL        time.Duration
	retryBackoff    time.Duration
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(w *Worker) { w.events = p }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(w *Worker) { w.auditor = p }
}

func WithClock(clock Clock) Option {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

func WithIntervals(scanInterval, dispatchTimeout, claimTTL, retryBackoff time.Duration) Option {
	return func(w *Worker) {
		if scanInterval > 0 {
			w.scanInterval = scanInterval
		}
		if dispatchTimeout > 0 {
			w.dispatchTimeout = dispatchTimeout
		}
		if claimTTL > 0 {
			w.claimTTL = claimTTL
		}
		if retryBackoff > 0 {
			w.retryBackoff = retryBackoff
		}
	}
}

func NewWorker(scheduler *schedule.Scheduler, instructions InstructionStore, vaults VaultReader, claims ClaimStore, dispatcher Dispatcher, opts ...Option) *Worker {
	w := &Worker{
		scheduler:       scheduler,
		instructions:    instructions,
		vaults:          vaults,
		claims:          claims,
		dispatcher:      dispatcher,
		logger:          slog.Default(),
		clock:           time.Now,
		tracer:          otel.Tracer("vaultkeeper/execution"),
		scanInterval:    5 * time.Second,
		dispatchTimeout: 10 * time.Second,
		claimTTL:        30 * time.Second,
		retryBackoff:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunPool runs count worker loops sharing the same queue until ctx ends.
func (w *Worker) RunPool(ctx context.Context, count int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		owner := fmt.Sprintf("worker-%d", i)
		g.Go(func() error {
			return w.run(ctx, owner)
		})
	}
	return g.Wait()
}

func (w *Worker) run(ctx context.Context, owner string) error {
	timer := time.NewTimer(w.scanInterval)
	defer timer.Stop()
	for {
		w.drain(ctx, owner)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.scanInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.scheduler.Wake():
		case <-timer.C:
		}
	}
}

func (w *Worker) drain(ctx context.Context, owner string) {
	for {
		if ctx.Err() != nil {
			return
		}
		entry := w.scheduler.PopDue(w.clock())
		if entry == nil {
			return
		}
		w.process(ctx, owner, entry)
	}
}

func (w *Worker) process(ctx context.Context, owner string, entry *schedule.Entry) {
	acquired, err := w.claims.Acquire(ctx, entry.InstructionID, owner, w.claimTTL)
	if err != nil {
		w.logger.ErrorContext(ctx, "claim acquire failed",
			"instruction_id", entry.InstructionID.String(), "error", err)
		w.scheduler.Requeue(entry, w.clock().Add(w.retryBackoff))
		return
	}
	if !acquired {
		// Another process holds the lease. Check back after it expires.
		w.scheduler.Requeue(entry, w.clock().Add(w.claimTTL))
		return
	}
	defer func() {
		if err := w.claims.Release(ctx, entry.InstructionID, owner); err != nil {
			w.logger.WarnContext(ctx, "claim release failed",
				"instruction_id", entry.InstructionID.String(), "error", err)
		}
	}()

	inst, err := w.instructions.FindByID(ctx, entry.InstructionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Deleted before it came due; nothing to run.
			return
		}
		w.logger.ErrorContext(ctx, "instruction load failed",
			"instruction_id", entry.InstructionID.String(), "error", err)
		w.scheduler.Requeue(entry, w.clock().Add(w.retryBackoff))
		return
	}
	if inst.Terminal() || inst.HeldAt != nil {
		return
	}

	v, err := w.vaults.FindByID(ctx, inst.VaultID)
	if err != nil {
		w.logger.ErrorContext(ctx, "vault load failed",
			"vault_id", inst.VaultID.String(), "error", err)
		w.scheduler.Requeue(entry, w.clock().Add(w.retryBackoff))
		return
	}
	if v.State != vault.StateUnlocked {
		// A due instruction on a vault that is not unlocked means the engine's
		// own bookkeeping broke. Never dispatch; park it for an operator.
		w.hold(ctx, inst, "vault not unlocked at execution time")
		return
	}

	w.dispatch(ctx, inst, entry)
}

func (w *Worker) dispatch(ctx context.Context, inst *instruction.Instruction, entry *schedule.Entry) {
	ctx, span := w.tracer.Start(ctx, "execution.Dispatch", trace.WithAttributes(
		attribute.String("instruction_id", inst.ID.String()),
		attribute.String("action", string(inst.Action)),
	))
	defer span.End()

	dispatchCtx, cancel := context.WithTimeout(ctx, w.dispatchTimeout)
	started := w.clock()
	outcome, dispatchErr := w.dispatcher.Dispatch(dispatchCtx, inst)
	cancel()
	elapsed := w.clock().Sub(started)
	if dispatchErr != nil && errors.Is(dispatchErr, context.DeadlineExceeded) {
		// A timed-out action may or may not have landed; treat as transient
		// and let the claim plus the executed flag keep it exactly-once.
		outcome = TransientFailure
	}
	w.metrics.RecordDispatch(outcome.String(), elapsed)

	switch outcome {
	case Success:
		executedAt := w.clock()
		if err := w.instructions.MarkExecuted(ctx, inst.ID, executedAt); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				// Someone else finalized between our load and our mark.
				return
			}
			w.logger.ErrorContext(ctx, "mark executed failed",
				"instruction_id", inst.ID.String(), "error", err)
			return
		}
		w.metrics.RecordInstructionExecuted()
		w.logger.InfoContext(ctx, "instruction executed",
			"instruction_id", inst.ID.String(),
			"vault_id", inst.VaultID.String(),
			"action", string(inst.Action),
			"elapsed", elapsed,
		)
		if w.auditor != nil {
			_ = w.auditor.Emit(ctx, audit.Event{
				Timestamp: executedAt,
				VaultID:   inst.VaultID.String(),
				Action:    audit.ActionInstructionExecuted,
				Subject:   inst.ID.String(),
				Detail:    string(inst.Action),
			})
		}
		if w.events != nil {
			if err := w.events.PublishInstructionExecuted(ctx, inst.ID, inst.VaultID, executedAt); err != nil {
				w.logger.WarnContext(ctx, "failed to publish execution event",
					"instruction_id", inst.ID.String(), "error", err)
			}
		}

	case TransientFailure:
		retryAt := w.clock().Add(w.retryBackoff)
		w.logger.WarnContext(ctx, "dispatch failed transiently",
			"instruction_id", inst.ID.String(),
			"retry_at", retryAt,
			"error", dispatchErr,
		)
		w.scheduler.Requeue(entry, retryAt)

	case PermanentFailure:
		reason := "dispatch failed permanently"
		if dispatchErr != nil {
			reason = dispatchErr.Error()
		}
		failedAt := w.clock()
		if err := w.instructions.MarkFailed(ctx, inst.ID, failedAt, reason); err != nil {
			if !errors.Is(err, sentinel.ErrInvalidState) {
				w.logger.ErrorContext(ctx, "mark failed failed",
					"instruction_id", inst.ID.String(), "error", err)
			}
			return
		}
		w.logger.ErrorContext(ctx, "instruction failed permanently",
			"instruction_id", inst.ID.String(),
			"reason", reason,
		)
		if w.auditor != nil {
			_ = w.auditor.Emit(ctx, audit.Event{
				Timestamp: failedAt,
				VaultID:   inst.VaultID.String(),
				Action:    audit.ActionInstructionFailed,
				Subject:   inst.ID.String(),
				Detail:    reason,
			})
		}
	}
}

func (w *Worker) hold(ctx context.Context, inst *instruction.Instruction, reason string) {
	heldAt := w.clock()
	if err := w.instructions.Hold(ctx, inst.ID, heldAt, reason); err != nil {
		w.logger.ErrorContext(ctx, "hold failed",
			"instruction_id", inst.ID.String(), "error", err)
		return
	}
	w.logger.ErrorContext(ctx, "instruction held",
		"instruction_id", inst.ID.String(),
		"vault_id", inst.VaultID.String(),
		"reason", reason,
	)
	if w.auditor != nil {
		_ = w.auditor.Emit(ctx, audit.Event{
			Timestamp: heldAt,
			VaultID:   inst.VaultID.String(),
			Action:    audit.ActionInstructionHeld,
			Subject:   inst.ID.String(),
			Detail:    reason,
		})
	}
}
