// Package core holds the immutable value types shared by every other
// package in the engine: events, instructions, executions and the status
// enum that drives the instruction state machine.
package core

import "context"

// InstructionStatus is the status of a BlueprintInstructionState.
// Once an instruction reaches COMPLETE or FAILED it is terminal.
type InstructionStatus string

const (
	InstructionStatusIdle       InstructionStatus = "IDLE"
	InstructionStatusProcessing InstructionStatus = "PROCESSING"
	InstructionStatusComplete   InstructionStatus = "COMPLETE"
	InstructionStatusFailed     InstructionStatus = "FAILED"
)

// IsTerminal reports whether the status is sticky and should no longer
// transition.
func (s InstructionStatus) IsTerminal() bool {
	return s == InstructionStatusComplete || s == InstructionStatusFailed
}

// ExecutionIDMetadataKey is the mandatory metadata key that ties an event
// to the execution it belongs to.
const ExecutionIDMetadataKey = "blueprint_execution_id"

// NotFoundExecutionID is the sentinel key events without an execution id
// are stored under. They are publishable but unreachable through the
// normal (topic, execution id) lookup.
const NotFoundExecutionID = "notfound"

// Event is a fact published to the bus. metadata.blueprint_execution_id is
// mandatory for any event an instruction needs to consume.
type Event struct {
	Topic    string
	Metadata map[string]any
	Body     map[string]any
}

// ExecutionID extracts metadata.blueprint_execution_id, defaulting to the
// not-found sentinel when it is absent.
func (e Event) ExecutionID() string {
	if e.Metadata == nil {
		return NotFoundExecutionID
	}
	id, _ := e.Metadata[ExecutionIDMetadataKey].(string)
	if id == "" {
		return NotFoundExecutionID
	}
	return id
}

// EventPublisher is the slice of the event bus an Action needs: the
// ability to publish downstream events. Kept narrow here so core does not
// depend on the eventbus package.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// AdapterDecision is the result of Adapter.Adapt. Proceed=false tells the
// executor to requeue the instruction instead of invoking the action.
type AdapterDecision struct {
	Proceed bool
	Value   any
}

// Adapter normalises execution context and matched events into the input
// an Action expects. Adapters are instantiated with no arguments.
type Adapter interface {
	Adapt(ctx context.Context, executionContext map[string]any, events []Event) (AdapterDecision, error)
}

// Action performs the side-effecting outcome of an instruction. Actions
// are instantiated with the event bus and a metadata record identifying
// the execution and instruction state that triggered them.
type Action interface {
	Act(ctx context.Context, adapterResult any) error
}

// AdapterFactory constructs a fresh Adapter instance per invocation.
type AdapterFactory func() Adapter

// ActionFactory constructs a fresh Action instance per invocation, wired
// to the bus and the metadata describing which execution/instruction is
// running.
type ActionFactory func(bus EventPublisher, metadata map[string]any) Action

// BlueprintInstructionOutcome is an adapter+action pair. ActionName and
// AdapterName are the class handles carried as data (serializable);
// Action and Adapter are the resolved factories, populated by the
// blueprint Manager's namespace lookup and left nil on a definition that
// has not yet been objectified.
type BlueprintInstructionOutcome struct {
	ActionName  string
	AdapterName string
	Action      ActionFactory
	Adapter     AdapterFactory
}

// BlueprintInstruction is conditions (+ optional termination conditions)
// plus the outcome they trigger.
type BlueprintInstruction struct {
	Conditions            []string
	TerminationConditions []string
	Outcome               BlueprintInstructionOutcome
}

// BlueprintInstructionState is the per-(execution, instruction) row the
// store tracks. Its identity is ID, not its position in the blueprint.
type BlueprintInstructionState struct {
	ID                   string
	BlueprintExecutionID string
	Instruction          BlueprintInstruction
	Status               InstructionStatus
}

// Blueprint is a named, ordered list of instructions, owned by the
// Blueprint Manager once registered.
type Blueprint struct {
	Name         string
	Instructions []BlueprintInstruction
}

// BlueprintExecution is one live run of a Blueprint. ExecutionContext is
// opaque to the engine and read-only after creation.
type BlueprintExecution struct {
	ExecutionID       string
	ExecutionContext  map[string]any
	Blueprint         Blueprint
	InstructionStates []BlueprintInstructionState
}
