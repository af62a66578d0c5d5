// Package memorystore is the in-memory Store backend: a test double and
// local-development backend with no real lease visibility timeout and no
// redelivery on crash. It is not safe for multiple worker processes - use
// postgrespool for that.
package memorystore

import (
	"context"
	"sync"

	"github.com/corvid-labs/blueprint-engine/bperrors"
	"github.com/corvid-labs/blueprint-engine/core"
	"github.com/corvid-labs/blueprint-engine/store"
)

type backend struct {
	mu         sync.Mutex
	executions map[string]core.BlueprintExecution
	states     map[string]core.BlueprintInstructionState
	// ready holds the ids of IDLE states in insertion order, the
	// in-memory stand-in for a real queue's FIFO delivery.
	ready []string
}

// New returns a store.Store backed entirely by process memory.
func New() *store.Base {
	b := &backend{
		executions: make(map[string]core.BlueprintExecution),
		states:     make(map[string]core.BlueprintInstructionState),
	}
	return store.NewBase(b)
}

func (b *backend) PersistExecution(ctx context.Context, execution core.BlueprintExecution) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.executions[execution.ExecutionID]; exists {
		return bperrors.NewAlreadyExists("execution", execution.ExecutionID)
	}
	b.executions[execution.ExecutionID] = copyExecution(execution)
	return nil
}

func (b *backend) PersistInstructionState(ctx context.Context, state core.BlueprintInstructionState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[state.ID] = state
	return nil
}

func (b *backend) Enqueue(ctx context.Context, state core.BlueprintInstructionState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = append(b.ready, state.ID)
	return nil
}

// ReceiveOne takes the oldest enqueued id whose current status is IDLE,
// skipping ids whose status has since moved on (already leased, or
// terminal - both possible if an id was enqueued twice). Once popped, an
// id is gone from the ready list for good; it resurfaces only when
// SetStatus moves it back to IDLE, which is how Requeue puts a state
// back up for lease.
func (b *backend) ReceiveOne(ctx context.Context, workerID string) (*core.BlueprintInstructionState, store.LeaseHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.ready) > 0 {
		id := b.ready[0]
		b.ready = b.ready[1:]

		state, ok := b.states[id]
		if !ok {
			continue
		}
		if state.Status != core.InstructionStatusIdle {
			continue
		}
		out := state
		return &out, nil, nil
	}
	return nil, nil, nil
}

func (b *backend) SetStatus(ctx context.Context, stateID string, status core.InstructionStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[stateID]
	if !ok {
		return bperrors.NewInstanceNotFound("instruction_state", stateID)
	}
	state.Status = status
	b.states[stateID] = state

	if status == core.InstructionStatusIdle {
		b.ready = append(b.ready, stateID)
	}
	return nil
}

func (b *backend) DeleteLeaseMessage(ctx context.Context, handle store.LeaseHandle) error {
	// Nothing to delete: the in-memory queue already popped the id in
	// ReceiveOne.
	return nil
}

func (b *backend) GetExecutionContext(ctx context.Context, executionID string) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	execution, ok := b.executions[executionID]
	if !ok {
		return nil, bperrors.NewInstanceNotFound("execution", executionID)
	}
	return execution.ExecutionContext, nil
}

func (b *backend) GetExecution(ctx context.Context, executionID string) (core.BlueprintExecution, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	execution, ok := b.executions[executionID]
	if !ok {
		return core.BlueprintExecution{}, bperrors.NewInstanceNotFound("execution", executionID)
	}
	return copyExecution(execution), nil
}

func copyExecution(execution core.BlueprintExecution) core.BlueprintExecution {
	out := execution
	if execution.ExecutionContext != nil {
		out.ExecutionContext = make(map[string]any, len(execution.ExecutionContext))
		for k, v := range execution.ExecutionContext {
			out.ExecutionContext[k] = v
		}
	}
	return out
}
