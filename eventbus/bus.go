// Package eventbus defines the per-execution topic -> event lookup that
// decouples the executors invoking actions (which publish downstream
// events) from the instructions listening for them.
package eventbus

import (
	"context"

	"github.com/corvid-labs/blueprint-engine/core"
)

// Bus publishes events keyed by (topic, execution id) and looks up the
// latest event for that key. A republish upserts - it replaces body and
// metadata rather than creating a second event.
type Bus interface {
	core.EventPublisher

	// Get returns the latest event for (topic, executionID), or
	// found=false if no such event has been published.
	Get(ctx context.Context, topic, executionID string) (event core.Event, found bool, err error)
}
