// Package serialisation provides stable JSON encoding for the entities in
// package core - the wire format for queue payloads and the column format
// for durable storage rows. Class handles (actions/adapters) are encoded
// as their names only; decoding needs an OutcomeResolver to turn those
// names back into factories, mirroring the blueprint Manager's namespace
// lookup.
package serialisation

import (
	"encoding/json"
	"fmt"

	"github.com/corvid-labs/blueprint-engine/core"
)

// OutcomeResolver resolves the class-handle names carried in a serialized
// instruction back into factories. blueprint.Namespace implements this.
type OutcomeResolver interface {
	ResolveAction(name string) (core.ActionFactory, error)
	ResolveAdapter(name string) (core.AdapterFactory, error)
}

type wireEvent struct {
	Topic    string         `json:"topic"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Body     map[string]any `json:"body,omitempty"`
}

// EncodeEvent renders an event to its stable JSON shape.
func EncodeEvent(event core.Event) ([]byte, error) {
	return json.Marshal(wireEvent{
		Topic:    event.Topic,
		Metadata: event.Metadata,
		Body:     event.Body,
	})
}

// DecodeEvent parses an event from its stable JSON shape.
func DecodeEvent(data []byte) (core.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return core.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return core.Event{Topic: w.Topic, Metadata: w.Metadata, Body: w.Body}, nil
}

type wireOutcome struct {
	Action  string `json:"action"`
	Adapter string `json:"adapter"`
}

type wireInstruction struct {
	Conditions            []string    `json:"conditions"`
	TerminationConditions []string    `json:"termination_conditions,omitempty"`
	Outcome               wireOutcome `json:"outcome"`
}

func toWireInstruction(instr core.BlueprintInstruction) wireInstruction {
	return wireInstruction{
		Conditions:            instr.Conditions,
		TerminationConditions: instr.TerminationConditions,
		Outcome: wireOutcome{
			Action:  instr.Outcome.ActionName,
			Adapter: instr.Outcome.AdapterName,
		},
	}
}

func fromWireInstruction(w wireInstruction, resolver OutcomeResolver) (core.BlueprintInstruction, error) {
	actionFactory, err := resolver.ResolveAction(w.Outcome.Action)
	if err != nil {
		return core.BlueprintInstruction{}, err
	}
	adapterFactory, err := resolver.ResolveAdapter(w.Outcome.Adapter)
	if err != nil {
		return core.BlueprintInstruction{}, err
	}
	return core.BlueprintInstruction{
		Conditions:            w.Conditions,
		TerminationConditions: w.TerminationConditions,
		Outcome: core.BlueprintInstructionOutcome{
			ActionName:  w.Outcome.Action,
			AdapterName: w.Outcome.Adapter,
			Action:      actionFactory,
			Adapter:     adapterFactory,
		},
	}, nil
}

// EncodeInstruction renders a single instruction (as embedded in a
// blueprint definition) to its stable JSON shape.
func EncodeInstruction(instr core.BlueprintInstruction) ([]byte, error) {
	return json.Marshal(toWireInstruction(instr))
}

// DecodeInstruction parses a single instruction, resolving its outcome's
// action/adapter names via resolver.
func DecodeInstruction(data []byte, resolver OutcomeResolver) (core.BlueprintInstruction, error) {
	var w wireInstruction
	if err := json.Unmarshal(data, &w); err != nil {
		return core.BlueprintInstruction{}, fmt.Errorf("decode instruction: %w", err)
	}
	return fromWireInstruction(w, resolver)
}

type wireInstructionState struct {
	ID                   string          `json:"id_"`
	BlueprintExecutionID string          `json:"blueprint_execution_id"`
	Instruction          wireInstruction `json:"instruction"`
	Status               string          `json:"status"`
}

// EncodeInstructionState renders an instruction state to its queue
// message / durable row shape.
func EncodeInstructionState(state core.BlueprintInstructionState) ([]byte, error) {
	return json.Marshal(wireInstructionState{
		ID:                   state.ID,
		BlueprintExecutionID: state.BlueprintExecutionID,
		Instruction:          toWireInstruction(state.Instruction),
		Status:               string(state.Status),
	})
}

// DecodeInstructionState parses a queue message / durable row back into
// an instruction state, resolving action/adapter names via resolver.
func DecodeInstructionState(data []byte, resolver OutcomeResolver) (core.BlueprintInstructionState, error) {
	var w wireInstructionState
	if err := json.Unmarshal(data, &w); err != nil {
		return core.BlueprintInstructionState{}, fmt.Errorf("decode instruction state: %w", err)
	}
	instr, err := fromWireInstruction(w.Instruction, resolver)
	if err != nil {
		return core.BlueprintInstructionState{}, err
	}
	return core.BlueprintInstructionState{
		ID:                   w.ID,
		BlueprintExecutionID: w.BlueprintExecutionID,
		Instruction:          instr,
		Status:               core.InstructionStatus(w.Status),
	}, nil
}

type wireBlueprint struct {
	Name         string            `json:"name"`
	Instructions []wireInstruction `json:"instructions"`
}

// EncodeBlueprint renders a blueprint to its stable JSON shape, used for
// the durable blueprint_execution row.
func EncodeBlueprint(bp core.Blueprint) ([]byte, error) {
	w := wireBlueprint{Name: bp.Name}
	for _, instr := range bp.Instructions {
		w.Instructions = append(w.Instructions, toWireInstruction(instr))
	}
	return json.Marshal(w)
}

// DecodeBlueprint parses a blueprint, resolving every instruction's
// outcome via resolver.
func DecodeBlueprint(data []byte, resolver OutcomeResolver) (core.Blueprint, error) {
	var w wireBlueprint
	if err := json.Unmarshal(data, &w); err != nil {
		return core.Blueprint{}, fmt.Errorf("decode blueprint: %w", err)
	}
	bp := core.Blueprint{Name: w.Name}
	for _, wi := range w.Instructions {
		instr, err := fromWireInstruction(wi, resolver)
		if err != nil {
			return core.Blueprint{}, err
		}
		bp.Instructions = append(bp.Instructions, instr)
	}
	return bp, nil
}

// EncodeExecutionContext renders the opaque execution context map for
// durable storage.
func EncodeExecutionContext(ctx map[string]any) ([]byte, error) {
	return json.Marshal(ctx)
}

// DecodeExecutionContext parses the opaque execution context map back
// from durable storage.
func DecodeExecutionContext(data []byte) (map[string]any, error) {
	var ctx map[string]any
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("decode execution context: %w", err)
	}
	return ctx, nil
}
