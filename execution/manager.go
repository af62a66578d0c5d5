// Package execution implements the execution manager: the entry point
// that turns a blueprint plus a boot event into a live, durably-stored
// execution ready for workers to drain.
package execution

import (
	"context"
	"fmt"

	"github.com/corvid-labs/blueprint-engine/core"
	"github.com/corvid-labs/blueprint-engine/store"
)

// Manager starts new blueprint executions in a fixed order: the boot
// event must not become visible on the bus until every instruction state
// row already exists, or a worker could lease a state before
// GetExecutionContext / bus lookups have anything to find.
type Manager struct {
	store  store.Store
	bus    core.EventPublisher
	idGen  core.IDGenerator
	logger core.Logger
}

// NewManager wires a Manager to the store, event bus and id generator it
// needs. logger may be nil, in which case start-up is silent.
func NewManager(st store.Store, bus core.EventPublisher, idGen core.IDGenerator, logger core.Logger) *Manager {
	return &Manager{store: st, bus: bus, idGen: idGen, logger: logger}
}

// StartExecution generates an execution id, stamps it onto bootEvent,
// materialises one IDLE instruction state per blueprint instruction,
// persists the execution and then publishes the boot event.
func (m *Manager) StartExecution(ctx context.Context, bp core.Blueprint, bootEvent core.Event, executionContext map[string]any) (core.BlueprintExecution, error) {
	executionID, err := m.idGen.GenerateID()
	if err != nil {
		return core.BlueprintExecution{}, fmt.Errorf("generate execution id: %w", err)
	}

	if bootEvent.Metadata == nil {
		bootEvent.Metadata = make(map[string]any, 1)
	}
	bootEvent.Metadata[core.ExecutionIDMetadataKey] = executionID

	states := make([]core.BlueprintInstructionState, 0, len(bp.Instructions))
	for _, instr := range bp.Instructions {
		stateID, err := m.idGen.GenerateID()
		if err != nil {
			return core.BlueprintExecution{}, fmt.Errorf("generate instruction state id: %w", err)
		}
		states = append(states, core.BlueprintInstructionState{
			ID:                   stateID,
			BlueprintExecutionID: executionID,
			Instruction:          instr,
			Status:               core.InstructionStatusIdle,
		})
	}

	execution := core.BlueprintExecution{
		ExecutionID:       executionID,
		ExecutionContext:  executionContext,
		Blueprint:         bp,
		InstructionStates: states,
	}

	if err := m.store.Store(ctx, execution); err != nil {
		return core.BlueprintExecution{}, fmt.Errorf("store execution: %w", err)
	}

	if err := m.bus.Publish(ctx, bootEvent); err != nil {
		return core.BlueprintExecution{}, fmt.Errorf("publish boot event: %w", err)
	}

	if m.logger != nil {
		m.logger.Info("started blueprint execution",
			core.StringLogField("execution_id", executionID),
			core.StringLogField("blueprint_name", bp.Name),
			core.AnyLogField("instruction_count", len(states)),
		)
	}

	return execution, nil
}

// GetExecution reads back a previously started execution, including the
// blueprint that produced it, from the durable store.
func (m *Manager) GetExecution(ctx context.Context, executionID string) (core.BlueprintExecution, error) {
	execution, err := m.store.GetExecution(ctx, executionID)
	if err != nil {
		return core.BlueprintExecution{}, fmt.Errorf("get execution: %w", err)
	}
	return execution, nil
}
