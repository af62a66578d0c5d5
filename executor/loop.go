// Package executor implements the worker loop: lease an instruction
// state, match its conditions against the event bus, invoke its outcome,
// and report the result back to the store - the finite state machine
// that drives every instruction from IDLE to a terminal status.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corvid-labs/blueprint-engine/bperrors"
	"github.com/corvid-labs/blueprint-engine/core"
	"github.com/corvid-labs/blueprint-engine/eventbus"
	"github.com/corvid-labs/blueprint-engine/store"
)

// RunStatus is the outcome of a single process() call, reported to
// observers through RunData.
type RunStatus string

const (
	StatusNoInstruction            RunStatus = "NO_INSTRUCTION"
	StatusTerminationConditionsMet RunStatus = "TERMINATION_CONDITIONS_MET"
	StatusConditionsNotMet         RunStatus = "CONDITIONS_NOT_MET"
	StatusAdapterReject            RunStatus = "OUTCOME_ADAPTER_REJECT"
	StatusActionFailed             RunStatus = "OUTCOME_ACTION_FAILED"
	StatusActionSuccess            RunStatus = "OUTCOME_ACTION_SUCCESS"
)

// RunData is the per-iteration observability record a Loop reports
// through its RunDataCallback and its logger.
type RunData struct {
	Time     time.Time
	WorkerID string
	State    *core.BlueprintInstructionState
	Status   RunStatus
	Err      error
}

// RunDataCallback receives one RunData after every loop iteration.
type RunDataCallback func(RunData)

// Loop is a single worker draining ready instructions from a store: it
// leases one instruction state at a time, checks its conditions, runs its
// outcome, and reports what happened before leasing the next one.
type Loop struct {
	store        store.Store
	bus          eventbus.Bus
	clock        core.Clock
	logger       core.Logger
	workerID     string
	loopInterval time.Duration
	onRunData    RunDataCallback
}

// Option configures a Loop at construction time.
type Option func(*Loop)

// WithRunDataCallback registers the observability hook invoked after
// every iteration.
func WithRunDataCallback(cb RunDataCallback) Option {
	return func(l *Loop) { l.onRunData = cb }
}

// WithLoopInterval sets the sleep between iterations when the loop does
// not find an instruction to run. Defaults to one second.
func WithLoopInterval(d time.Duration) Option {
	return func(l *Loop) { l.loopInterval = d }
}

// NewLoop builds a worker bound to st/bus, identified by workerID.
func NewLoop(st store.Store, bus eventbus.Bus, clock core.Clock, logger core.Logger, workerID string, opts ...Option) *Loop {
	l := &Loop{
		store:        st,
		bus:          bus,
		clock:        clock,
		logger:       logger,
		workerID:     workerID,
		loopInterval: time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drains the store for up to maxIterations iterations, or forever if
// maxIterations <= 0. It returns when maxIterations is reached, ctx is
// cancelled, or a lease call itself fails (a StoreError reaching the
// loop from outside process, meaning the backend is unreachable).
func (l *Loop) Run(ctx context.Context, maxIterations int) error {
	for iteration := 1; maxIterations <= 0 || iteration <= maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, err := l.store.Lease(ctx, l.workerID)
		if err != nil {
			l.report(RunData{Time: l.clock.Now(), WorkerID: l.workerID, Status: StatusNoInstruction, Err: err})
			return fmt.Errorf("lease failed, aborting loop: %w", err)
		}

		if state == nil {
			l.report(RunData{Time: l.clock.Now(), WorkerID: l.workerID, Status: StatusNoInstruction})
		} else {
			status, procErr := l.process(ctx, state)
			l.report(RunData{Time: l.clock.Now(), WorkerID: l.workerID, State: state, Status: status, Err: procErr})
		}

		if maxIterations > 0 && iteration >= maxIterations {
			break
		}
		if state == nil && l.loopInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.loopInterval):
			}
		}
	}
	return nil
}

// process runs one instruction state through its condition check,
// termination check and outcome.
func (l *Loop) process(ctx context.Context, state *core.BlueprintInstructionState) (RunStatus, error) {
	instr := state.Instruction

	if len(instr.TerminationConditions) > 0 {
		met, err := l.allTopicsHaveEvents(ctx, instr.TerminationConditions, state.BlueprintExecutionID)
		if err != nil {
			return l.failStore(ctx, state, err)
		}
		if met {
			if err := l.store.End(ctx, state); err != nil {
				return l.failStore(ctx, state, err)
			}
			return StatusTerminationConditionsMet, nil
		}
	}

	events, allMatched, err := l.matchConditions(ctx, instr.Conditions, state.BlueprintExecutionID)
	if err != nil {
		return l.failStore(ctx, state, err)
	}
	if !allMatched {
		if err := l.store.Requeue(ctx, state); err != nil {
			return l.failStore(ctx, state, err)
		}
		return StatusConditionsNotMet, nil
	}

	return l.executeOutcome(ctx, state, events)
}

func (l *Loop) executeOutcome(ctx context.Context, state *core.BlueprintInstructionState, events []core.Event) (status RunStatus, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			if l.logger != nil {
				l.logger.Error("outcome panicked",
					core.StringLogField("instruction_state_id", state.ID),
					core.AnyLogField("recovered", r),
				)
			}
			if err := l.store.AckFailure(ctx, state); err != nil {
				status, retErr = StatusActionFailed, err
				return
			}
			status, retErr = StatusActionFailed, fmt.Errorf("outcome panicked: %v", r)
		}
	}()

	execCtx, err := l.store.GetExecutionContext(ctx, state.BlueprintExecutionID)
	if err != nil {
		return l.failStore(ctx, state, err)
	}

	adapter := state.Instruction.Outcome.Adapter()
	decision, err := adapter.Adapt(ctx, execCtx, events)
	if err != nil {
		if errors.Is(err, bperrors.ErrNoActionRequired) {
			if err := l.store.Requeue(ctx, state); err != nil {
				return StatusActionFailed, err
			}
			return StatusAdapterReject, nil
		}
		return l.failAction(ctx, state, err)
	}
	if !decision.Proceed {
		if err := l.store.Requeue(ctx, state); err != nil {
			return StatusActionFailed, err
		}
		return StatusAdapterReject, nil
	}

	action := state.Instruction.Outcome.Action(l.bus, map[string]any{
		core.ExecutionIDMetadataKey: state.BlueprintExecutionID,
		"instruction_state":         state.ID,
	})
	if err := action.Act(ctx, decision.Value); err != nil {
		return l.failAction(ctx, state, err)
	}

	if err := l.store.AckSuccess(ctx, state); err != nil {
		return l.failStore(ctx, state, err)
	}
	return StatusActionSuccess, nil
}

// failAction handles a well-formed error from adapt/act: mark the
// instruction terminally FAILED and keep the loop running.
func (l *Loop) failAction(ctx context.Context, state *core.BlueprintInstructionState, cause error) (RunStatus, error) {
	if err := l.store.AckFailure(ctx, state); err != nil {
		return StatusActionFailed, fmt.Errorf("outcome failed (%w) and ack_failure also failed: %v", cause, err)
	}
	return StatusActionFailed, cause
}

// failStore handles a store-originated error raised from inside
// process: record OUTCOME_ACTION_FAILED for this iteration without
// touching the state (its status is whatever the backend left it at)
// and let the loop continue - only a Lease failure aborts the loop.
func (l *Loop) failStore(ctx context.Context, state *core.BlueprintInstructionState, err error) (RunStatus, error) {
	return StatusActionFailed, err
}

func (l *Loop) matchConditions(ctx context.Context, topics []string, executionID string) ([]core.Event, bool, error) {
	events := make([]core.Event, 0, len(topics))
	for _, topic := range topics {
		event, found, err := l.bus.Get(ctx, topic, executionID)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return nil, false, nil
		}
		events = append(events, event)
	}
	return events, true, nil
}

func (l *Loop) allTopicsHaveEvents(ctx context.Context, topics []string, executionID string) (bool, error) {
	for _, topic := range topics {
		_, found, err := l.bus.Get(ctx, topic, executionID)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

func (l *Loop) report(data RunData) {
	if l.onRunData != nil {
		l.onRunData(data)
	}
	if l.logger == nil {
		return
	}
	fields := []core.LogField{
		core.StringLogField("worker_id", data.WorkerID),
		core.StringLogField("status", string(data.Status)),
	}
	if data.State != nil {
		fields = append(fields, core.StringLogField("instruction_state_id", data.State.ID))
	}
	if data.Err != nil {
		l.logger.Warn("executor iteration reported an error", append(fields, core.ErrorLogField("error", data.Err))...)
		return
	}
	l.logger.Debug("executor iteration", fields...)
}
