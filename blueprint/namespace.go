package blueprint

import (
	"fmt"
	"sync"

	"github.com/corvid-labs/blueprint-engine/core"
)

// Namespace is a registry of named action/adapter factories. Blueprints
// carry names, not the factories themselves, so they stay data: the
// executor resolves a name through the namespace to obtain a fresh
// instance only when it is about to run one.
type Namespace struct {
	mu       sync.RWMutex
	actions  map[string]core.ActionFactory
	adapters map[string]core.AdapterFactory
}

// NewNamespace creates an empty namespace. Host applications register
// every action/adapter a blueprint may reference before constructing a
// Manager from it.
func NewNamespace() *Namespace {
	return &Namespace{
		actions:  make(map[string]core.ActionFactory),
		adapters: make(map[string]core.AdapterFactory),
	}
}

// RegisterAction adds a named action factory to the namespace.
func (n *Namespace) RegisterAction(name string, factory core.ActionFactory) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions[name] = factory
}

// RegisterAdapter adds a named adapter factory to the namespace.
func (n *Namespace) RegisterAdapter(name string, factory core.AdapterFactory) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.adapters[name] = factory
}

// HasAction reports whether name is registered as an action.
func (n *Namespace) HasAction(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.actions[name]
	return ok
}

// HasAdapter reports whether name is registered as an adapter.
func (n *Namespace) HasAdapter(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.adapters[name]
	return ok
}

// ResolveAction looks up a registered action factory by name. It
// implements serialisation.OutcomeResolver.
func (n *Namespace) ResolveAction(name string) (core.ActionFactory, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	factory, ok := n.actions[name]
	if !ok {
		return nil, fmt.Errorf("action %q is not defined in the namespace", name)
	}
	return factory, nil
}

// ResolveAdapter looks up a registered adapter factory by name. It
// implements serialisation.OutcomeResolver.
func (n *Namespace) ResolveAdapter(name string) (core.AdapterFactory, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	factory, ok := n.adapters[name]
	if !ok {
		return nil, fmt.Errorf("adapter %q is not defined in the namespace", name)
	}
	return factory, nil
}
