// Package blueprint implements the blueprint model & validator: turning
// a JSON blueprint definition into an executable core.Blueprint, backed
// by a namespace of named action/adapter factories, and keeping a
// registry of the blueprints that have been added.
package blueprint

import (
	"sync"

	"github.com/corvid-labs/blueprint-engine/bperrors"
	"github.com/corvid-labs/blueprint-engine/core"
)

// InstructionOutcomeDefinition is the JSON shape of an instruction's
// outcome in a blueprint definition.
type InstructionOutcomeDefinition struct {
	Action  string `json:"action"`
	Adapter string `json:"adapter"`
}

// InstructionDefinition is the JSON shape of a single instruction in a
// blueprint definition.
type InstructionDefinition struct {
	Conditions            []string                     `json:"conditions"`
	TerminationConditions []string                     `json:"termination_conditions,omitempty"`
	Outcome               InstructionOutcomeDefinition `json:"outcome"`
}

// Definition is the JSON input to Manager.AddBlueprint: a named, ordered
// list of instructions.
type Definition struct {
	Name         string                  `json:"name"`
	Instructions []InstructionDefinition `json:"instructions"`
}

// Manager validates blueprint definitions against a namespace of named
// actions/adapters, materialises them into core.Blueprint values and
// keeps a registry of the live (already-added) blueprints, keyed by name.
type Manager struct {
	namespace *Namespace

	mu   sync.RWMutex
	live map[string]core.Blueprint
}

// NewManager creates a Manager bound to namespace. The namespace should
// already have every action/adapter the host application intends to use
// registered before any blueprint is added.
func NewManager(namespace *Namespace) *Manager {
	return &Manager{
		namespace: namespace,
		live:      make(map[string]core.Blueprint),
	}
}

// Namespace returns the namespace the manager validates against, so the
// executor/store layers can resolve outcomes rehydrated from the queue.
func (m *Manager) Namespace() *Namespace {
	return m.namespace
}

// AddBlueprint validates def, materialises it into a core.Blueprint and
// registers it. It fails with bperrors.InvalidBlueprintDefinition if def
// is structurally invalid, names an action/adapter absent from the
// namespace, or reuses a name already registered.
func (m *Manager) AddBlueprint(def Definition) (core.Blueprint, error) {
	if err := m.validate(def); err != nil {
		return core.Blueprint{}, err
	}

	bp, err := m.convert(def)
	if err != nil {
		return core.Blueprint{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.live[bp.Name]; exists {
		return core.Blueprint{}, bperrors.NewInvalidBlueprintDefinition(
			"blueprint with name %q is already registered", bp.Name,
		)
	}
	m.live[bp.Name] = bp
	return bp, nil
}

// Get looks up a previously-added blueprint by name.
func (m *Manager) Get(name string) (core.Blueprint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bp, ok := m.live[name]
	if !ok {
		return core.Blueprint{}, bperrors.NewInstanceNotFound("blueprint", name)
	}
	return bp, nil
}

// ObjectifyInstruction rebuilds a core.BlueprintInstruction from its JSON
// form, resolving class names back to factories using the namespace.
// Used when rehydrating an instruction state read off the durable
// backend's queue.
func (m *Manager) ObjectifyInstruction(def InstructionDefinition) (core.BlueprintInstruction, error) {
	if err := m.validateInstruction(def, -1); err != nil {
		return core.BlueprintInstruction{}, err
	}
	return m.objectifyInstruction(def)
}

func (m *Manager) validate(def Definition) error {
	if def.Name == "" && len(def.Instructions) == 0 {
		return bperrors.NewInvalidBlueprintDefinition("blueprint definition seems to be empty")
	}
	if def.Name == "" {
		return bperrors.NewInvalidBlueprintDefinition("blueprint definition must have a name")
	}
	if len(def.Instructions) == 0 {
		return bperrors.NewInvalidBlueprintDefinition("blueprint definition must have at least one instruction")
	}
	for i, instr := range def.Instructions {
		if err := m.validateInstruction(instr, i); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) validateInstruction(instr InstructionDefinition, index int) error {
	if len(instr.Conditions) == 0 {
		return bperrors.NewInvalidBlueprintDefinition(
			"instruction %d must have at least one condition", index,
		)
	}
	if instr.Outcome.Action == "" || instr.Outcome.Adapter == "" {
		return bperrors.NewInvalidBlueprintDefinition(
			"instruction %d outcome must name both an action and an adapter", index,
		)
	}
	if !m.namespace.HasAction(instr.Outcome.Action) {
		return bperrors.NewInvalidBlueprintDefinition(
			"instruction %d references action %q which is not defined in the namespace",
			index, instr.Outcome.Action,
		)
	}
	if !m.namespace.HasAdapter(instr.Outcome.Adapter) {
		return bperrors.NewInvalidBlueprintDefinition(
			"instruction %d references adapter %q which is not defined in the namespace",
			index, instr.Outcome.Adapter,
		)
	}
	return nil
}

func (m *Manager) convert(def Definition) (core.Blueprint, error) {
	bp := core.Blueprint{Name: def.Name}
	for _, instrDef := range def.Instructions {
		instr, err := m.objectifyInstruction(instrDef)
		if err != nil {
			return core.Blueprint{}, err
		}
		bp.Instructions = append(bp.Instructions, instr)
	}
	return bp, nil
}

func (m *Manager) objectifyInstruction(def InstructionDefinition) (core.BlueprintInstruction, error) {
	actionFactory, err := m.namespace.ResolveAction(def.Outcome.Action)
	if err != nil {
		return core.BlueprintInstruction{}, bperrors.NewInvalidBlueprintDefinition("%s", err)
	}
	adapterFactory, err := m.namespace.ResolveAdapter(def.Outcome.Adapter)
	if err != nil {
		return core.BlueprintInstruction{}, bperrors.NewInvalidBlueprintDefinition("%s", err)
	}
	return core.BlueprintInstruction{
		Conditions:            def.Conditions,
		TerminationConditions: def.TerminationConditions,
		Outcome: core.BlueprintInstructionOutcome{
			ActionName:  def.Outcome.Action,
			AdapterName: def.Outcome.Adapter,
			Action:      actionFactory,
			Adapter:     adapterFactory,
		},
	}, nil
}
