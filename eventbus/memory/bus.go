// Package memory is the in-memory, single-process Bus implementation - a
// test double and local-development backend. State is lost on restart.
package memory

import (
	"context"
	"sync"

	"github.com/corvid-labs/blueprint-engine/core"
)

// Bus is a two-level map topic -> execution id -> Event behind a mutex.
type Bus struct {
	mu     sync.RWMutex
	events map[string]map[string]core.Event
}

// New creates an empty in-memory bus.
func New() *Bus {
	return &Bus{events: make(map[string]map[string]core.Event)}
}

// Publish stores event under (event.Topic, event.ExecutionID()). A
// second publish for the same key overwrites the first (upsert);
// metadata missing an execution id is filed under the "notfound"
// sentinel, reachable only by an explicit lookup for that key.
func (b *Bus) Publish(ctx context.Context, event core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	byExecution, ok := b.events[event.Topic]
	if !ok {
		byExecution = make(map[string]core.Event)
		b.events[event.Topic] = byExecution
	}
	byExecution[event.ExecutionID()] = copyEvent(event)
	return nil
}

// Get returns the latest event published for (topic, executionID).
func (b *Bus) Get(ctx context.Context, topic, executionID string) (core.Event, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	byExecution, ok := b.events[topic]
	if !ok {
		return core.Event{}, false, nil
	}
	event, ok := byExecution[executionID]
	if !ok {
		return core.Event{}, false, nil
	}
	return copyEvent(event), true, nil
}

func copyEvent(event core.Event) core.Event {
	out := core.Event{Topic: event.Topic}
	if event.Metadata != nil {
		out.Metadata = make(map[string]any, len(event.Metadata))
		for k, v := range event.Metadata {
			out.Metadata[k] = v
		}
	}
	if event.Body != nil {
		out.Body = make(map[string]any, len(event.Body))
		for k, v := range event.Body {
			out.Body[k] = v
		}
	}
	return out
}
