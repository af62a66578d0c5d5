// Package store defines the execution store: a durable record of
// executions/instruction states that doubles as a work queue of ready
// instructions, with at-most-one-worker-at-a-time hand-off and
// redelivery on crash.
//
// The Store interface is backend-agnostic; Base implements the shared
// pre/post transition logic as a template-method algorithm object over a
// small Backend interface, so the in-memory and durable implementations
// share one state machine and differ only in how they persist and queue.
package store

import (
	"context"
	"sync"

	"github.com/corvid-labs/blueprint-engine/bperrors"
	"github.com/corvid-labs/blueprint-engine/core"
)

// Store is the durable (execution, instruction-state) registry plus
// dispatch queue a worker leases from.
type Store interface {
	// Store persists execution and enqueues each of its instruction
	// states for workers to lease. Execution is persisted before its
	// states; a duplicate execution id fails.
	Store(ctx context.Context, execution core.BlueprintExecution) error

	// Lease receives up to one ready instruction state, transitions it
	// to PROCESSING and returns it. Returns nil, nil if no state is
	// ready.
	Lease(ctx context.Context, workerID string) (*core.BlueprintInstructionState, error)

	// AckSuccess marks state COMPLETE and removes it from the dispatch
	// queue. Idempotent: re-acking an already-complete state is a no-op.
	AckSuccess(ctx context.Context, state *core.BlueprintInstructionState) error

	// AckFailure marks state FAILED (terminal) and removes it from the
	// dispatch queue.
	AckFailure(ctx context.Context, state *core.BlueprintInstructionState) error

	// Requeue marks state IDLE without removing it from the dispatch
	// queue, letting the backend's redelivery mechanism resurface it.
	Requeue(ctx context.Context, state *core.BlueprintInstructionState) error

	// End marks state COMPLETE, semantically distinct from AckSuccess in
	// that it represents a termination condition being reached rather
	// than the outcome having run.
	End(ctx context.Context, state *core.BlueprintInstructionState) error

	// GetExecutionContext reads the execution_context for executionID.
	GetExecutionContext(ctx context.Context, executionID string) (map[string]any, error)

	// GetExecution reads back the full durable execution row, including
	// the blueprint that produced it, for executionID.
	GetExecution(ctx context.Context, executionID string) (core.BlueprintExecution, error)
}

// LeaseHandle is an opaque backend-specific handle (an SQS receipt handle,
// for example) needed to delete a redelivered message. The in-memory
// backend has no real queue and uses nil handles throughout.
type LeaseHandle any

// Backend is the small set of hooks a concrete store implementation must
// provide; Base supplies the shared state-machine behaviour around them.
type Backend interface {
	PersistExecution(ctx context.Context, execution core.BlueprintExecution) error
	PersistInstructionState(ctx context.Context, state core.BlueprintInstructionState) error
	Enqueue(ctx context.Context, state core.BlueprintInstructionState) error

	// ReceiveOne returns up to one ready instruction state and a handle
	// used to later delete its queue message. state is nil if none are
	// ready.
	ReceiveOne(ctx context.Context, workerID string) (state *core.BlueprintInstructionState, handle LeaseHandle, err error)

	SetStatus(ctx context.Context, stateID string, status core.InstructionStatus) error
	DeleteLeaseMessage(ctx context.Context, handle LeaseHandle) error
	GetExecutionContext(ctx context.Context, executionID string) (map[string]any, error)
	GetExecution(ctx context.Context, executionID string) (core.BlueprintExecution, error)
}

// Base is the template-method algorithm object: it owns the pre/post
// transitions (lease => PROCESSING, terminal => delete-from-queue) and
// delegates everything backend-specific to a Backend.
type Base struct {
	backend Backend

	mu           sync.Mutex
	leaseHandles map[string]LeaseHandle
}

// NewBase wraps backend in the shared state-machine logic and returns a
// ready-to-use Store.
func NewBase(backend Backend) *Base {
	return &Base{
		backend:      backend,
		leaseHandles: make(map[string]LeaseHandle),
	}
}

func (s *Base) Store(ctx context.Context, execution core.BlueprintExecution) error {
	if err := s.backend.PersistExecution(ctx, execution); err != nil {
		return bperrors.NewStoreError("store_execution", err)
	}
	for _, state := range execution.InstructionStates {
		if err := s.backend.PersistInstructionState(ctx, state); err != nil {
			return bperrors.NewStoreError("store_instruction_state", err)
		}
		if err := s.backend.Enqueue(ctx, state); err != nil {
			return bperrors.NewStoreError("enqueue_instruction_state", err)
		}
	}
	return nil
}

func (s *Base) Lease(ctx context.Context, workerID string) (*core.BlueprintInstructionState, error) {
	state, handle, err := s.backend.ReceiveOne(ctx, workerID)
	if err != nil {
		return nil, bperrors.NewStoreError("lease", err)
	}
	if state == nil {
		return nil, nil
	}

	if err := s.backend.SetStatus(ctx, state.ID, core.InstructionStatusProcessing); err != nil {
		return nil, bperrors.NewStoreError("lease_set_processing", err)
	}
	state.Status = core.InstructionStatusProcessing

	s.mu.Lock()
	s.leaseHandles[state.ID] = handle
	s.mu.Unlock()

	return state, nil
}

func (s *Base) AckSuccess(ctx context.Context, state *core.BlueprintInstructionState) error {
	return s.terminal(ctx, state, core.InstructionStatusComplete)
}

func (s *Base) End(ctx context.Context, state *core.BlueprintInstructionState) error {
	return s.terminal(ctx, state, core.InstructionStatusComplete)
}

func (s *Base) AckFailure(ctx context.Context, state *core.BlueprintInstructionState) error {
	return s.terminal(ctx, state, core.InstructionStatusFailed)
}

func (s *Base) terminal(ctx context.Context, state *core.BlueprintInstructionState, status core.InstructionStatus) error {
	if state.Status.IsTerminal() {
		// Terminal statuses are sticky; re-acking is a no-op.
		return nil
	}
	if err := s.backend.SetStatus(ctx, state.ID, status); err != nil {
		return bperrors.NewStoreError("set_terminal_status", err)
	}
	state.Status = status

	handle := s.popLeaseHandle(state.ID)
	if err := s.backend.DeleteLeaseMessage(ctx, handle); err != nil {
		return bperrors.NewStoreError("delete_lease_message", err)
	}
	return nil
}

func (s *Base) Requeue(ctx context.Context, state *core.BlueprintInstructionState) error {
	if err := s.backend.SetStatus(ctx, state.ID, core.InstructionStatusIdle); err != nil {
		return bperrors.NewStoreError("requeue", err)
	}
	state.Status = core.InstructionStatusIdle

	// Deliberately do not delete the lease message: the backend's
	// visibility timeout lets it resurface for redelivery (the in-memory
	// backend instead puts the id back on its ready list when SetStatus
	// moves it to IDLE).
	s.mu.Lock()
	delete(s.leaseHandles, state.ID)
	s.mu.Unlock()

	return nil
}

func (s *Base) GetExecutionContext(ctx context.Context, executionID string) (map[string]any, error) {
	execCtx, err := s.backend.GetExecutionContext(ctx, executionID)
	if err != nil {
		return nil, bperrors.NewStoreError("get_execution_context", err)
	}
	return execCtx, nil
}

func (s *Base) GetExecution(ctx context.Context, executionID string) (core.BlueprintExecution, error) {
	execution, err := s.backend.GetExecution(ctx, executionID)
	if err != nil {
		return core.BlueprintExecution{}, bperrors.NewStoreError("get_execution", err)
	}
	return execution, nil
}

func (s *Base) popLeaseHandle(stateID string) LeaseHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.leaseHandles[stateID]
	delete(s.leaseHandles, stateID)
	return handle
}
