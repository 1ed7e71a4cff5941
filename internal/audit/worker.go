package audit

import (
	"context"
	"log/slog"
)

// Sink receives each audit event after it is persisted; the notification
// service hangs off this to turn engine actions into owner notifications.
type Sink interface {
	OnAuditEvent(ctx context.Context, event Event) error
}

// Worker consumes audit events from the publisher's channel, persists them,
// and fans them out to sinks. Sink failures are logged, never fatal: losing
// a notification must not lose the audit record.
type Worker struct {
	store  Store
	inbox  <-chan Event
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, sinks: sinks, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action, "vault_id", event.VaultID, "error", err)
				continue
			}
			for _, sink := range w.sinks {
				if err := sink.OnAuditEvent(ctx, event); err != nil {
					w.logger.WarnContext(ctx, "audit sink failed",
						"action", event.Action, "vault_id", event.VaultID, "error", err)
				}
			}
		}
	}
}
