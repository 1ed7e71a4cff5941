package audit

import (
	"context"
	"time"
)

// Publisher hands audit events to the worker through a buffered channel so
// the request path never waits on the audit store.
type Publisher struct {
	inbox chan Event
}

func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{inbox: make(chan Event, buffer)}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbox is consumed by the Worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
