// Package postgres is the durable Bus implementation: one row per
// (topic, execution id) in event_model, publish is an upsert, get is a
// direct lookup.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvid-labs/blueprint-engine/core"
)

// Bus is the pgxpool-backed Bus implementation.
type Bus struct {
	connPool *pgxpool.Pool
}

// New wraps an already-configured pgxpool.Pool. Callers are expected to
// have built the pool from internal/config.PostgresConfig.
func New(connPool *pgxpool.Pool) *Bus {
	return &Bus{connPool: connPool}
}

// Migrate creates event_model if it does not already exist.
func (b *Bus) Migrate(ctx context.Context) error {
	_, err := b.connPool.Exec(ctx, createTableQuery())
	if err != nil {
		return fmt.Errorf("migrate event_model: %w", err)
	}
	return nil
}

// Publish upserts event under (event.Topic, event.ExecutionID()).
func (b *Bus) Publish(ctx context.Context, event core.Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	body, err := json.Marshal(event.Body)
	if err != nil {
		return fmt.Errorf("marshal event body: %w", err)
	}

	_, err = b.connPool.Exec(
		ctx,
		upsertEventQuery(),
		pgx.NamedArgs{
			"topic":       event.Topic,
			"executionId": event.ExecutionID(),
			"metadata":    metadata,
			"body":        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Get returns the latest event for (topic, executionID).
func (b *Bus) Get(ctx context.Context, topic, executionID string) (core.Event, bool, error) {
	var metadataRaw, bodyRaw []byte
	err := b.connPool.QueryRow(
		ctx,
		eventQuery(),
		pgx.NamedArgs{"topic": topic, "executionId": executionID},
	).Scan(&metadataRaw, &bodyRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Event{}, false, nil
		}
		return core.Event{}, false, fmt.Errorf("get event: %w", err)
	}

	event := core.Event{Topic: topic}
	if err := json.Unmarshal(metadataRaw, &event.Metadata); err != nil {
		return core.Event{}, false, fmt.Errorf("unmarshal event metadata: %w", err)
	}
	if err := json.Unmarshal(bodyRaw, &event.Body); err != nil {
		return core.Event{}, false, fmt.Errorf("unmarshal event body: %w", err)
	}
	return event, true, nil
}
