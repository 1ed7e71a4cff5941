package execution

import (
	"context"

	"vaultkeeper/internal/instruction"
)

//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks

// Outcome classifies a dispatch attempt.
type Outcome int

const (
	// Success means the action completed; the instruction is done forever.
	Success Outcome = iota
	// TransientFailure means the action may succeed later; the worker
	// requeues with backoff.
	TransientFailure
	// PermanentFailure means the action can never succeed; the instruction
	// moves to its failed terminal state.
	PermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case TransientFailure:
		return "transient"
	case PermanentFailure:
		return "permanent"
	default:
		return "unknown"
	}
}

// Dispatcher performs the side effect an instruction describes. The worker
// bounds each call with the dispatch timeout; a call that overruns it is
// treated as a transient failure.
type Dispatcher interface {
	Dispatch(ctx context.Context, inst *instruction.Instruction) (Outcome, error)
}
