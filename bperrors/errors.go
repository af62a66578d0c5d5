// Package bperrors holds the engine's error taxonomy: validation failures
// from the blueprint manager, the adapter-reject signal, and backend
// failures surfaced by the store and bus.
package bperrors

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidBlueprintDefinition is raised by the Blueprint Manager for any
// validation failure. It is fatal to AddBlueprint and is always surfaced
// to the caller - the manager never partially registers a blueprint.
type InvalidBlueprintDefinition struct {
	Reasons []string
}

func (e *InvalidBlueprintDefinition) Error() string {
	if len(e.Reasons) == 1 {
		return fmt.Sprintf("invalid blueprint definition: %s", e.Reasons[0])
	}
	return fmt.Sprintf("invalid blueprint definition: %s", strings.Join(e.Reasons, "; "))
}

// NewInvalidBlueprintDefinition builds an InvalidBlueprintDefinition error
// from a single reason, formatted with fmt.Sprintf semantics.
func NewInvalidBlueprintDefinition(format string, args ...any) error {
	return &InvalidBlueprintDefinition{Reasons: []string{fmt.Sprintf(format, args...)}}
}

// ErrNoActionRequired is the signal an adapter can return to indicate the
// instruction's conditions matched but this run should be skipped. It is
// not an error condition from the engine's perspective: the executor
// translates it into a requeue rather than a failure. An adapter can
// either return this sentinel as its error, or return
// AdapterDecision{Proceed: false} with a nil error - the executor treats
// both identically.
var ErrNoActionRequired = errors.New("no action required")

// StoreError wraps a backend-level failure (database unavailable, queue
// unavailable) so callers can use errors.Is/errors.As through it while
// still identifying it as a store-originated failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %s", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// InstanceNotFound is returned by store/bus lookups for an unknown id.
type InstanceNotFound struct {
	Kind string
	ID   string
}

func (e *InstanceNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func NewInstanceNotFound(kind, id string) error {
	return &InstanceNotFound{Kind: kind, ID: id}
}

// AlreadyExists is returned by store writes that would duplicate an
// existing id, such as storing an execution twice.
type AlreadyExists struct {
	Kind string
	ID   string
}

func (e *AlreadyExists) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.ID)
}

func NewAlreadyExists(kind, id string) error {
	return &AlreadyExists{Kind: kind, ID: id}
}
