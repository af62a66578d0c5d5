package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/corvid-labs/blueprint-engine/core"
)

type BusTestSuite struct {
	suite.Suite
}

func (s *BusTestSuite) Test_publish_then_get_round_trips() {
	bus := New()
	ctx := context.Background()
	event := core.Event{
		Topic:    "new_order",
		Metadata: map[string]any{core.ExecutionIDMetadataKey: "exec-1"},
		Body:     map[string]any{"order_id": "ABC"},
	}

	s.Require().NoError(bus.Publish(ctx, event))

	got, found, err := bus.Get(ctx, "new_order", "exec-1")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Assert().Equal(event.Topic, got.Topic)
	s.Assert().Equal(event.Metadata, got.Metadata)
	s.Assert().Equal(event.Body, got.Body)
}

func (s *BusTestSuite) Test_get_returns_not_found_for_unknown_key() {
	bus := New()
	ctx := context.Background()
	_, found, err := bus.Get(ctx, "missing", "exec-1")
	s.Require().NoError(err)
	s.Assert().False(found)
}

func (s *BusTestSuite) Test_republish_upserts_rather_than_duplicates() {
	bus := New()
	ctx := context.Background()
	key := map[string]any{core.ExecutionIDMetadataKey: "exec-1"}

	s.Require().NoError(bus.Publish(ctx, core.Event{Topic: "new_order", Metadata: key, Body: map[string]any{"v": 1}}))
	s.Require().NoError(bus.Publish(ctx, core.Event{Topic: "new_order", Metadata: key, Body: map[string]any{"v": 2}}))

	got, found, err := bus.Get(ctx, "new_order", "exec-1")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Assert().Equal(2, got.Body["v"])
}

func (s *BusTestSuite) Test_event_without_execution_id_is_filed_under_notfound_sentinel() {
	bus := New()
	ctx := context.Background()
	s.Require().NoError(bus.Publish(ctx, core.Event{Topic: "orphan"}))

	_, found, err := bus.Get(ctx, "orphan", "exec-1")
	s.Require().NoError(err)
	s.Assert().False(found)

	got, found, err := bus.Get(ctx, "orphan", core.NotFoundExecutionID)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Assert().Equal("orphan", got.Topic)
}

func (s *BusTestSuite) Test_returned_event_is_a_copy_not_shared_state() {
	bus := New()
	ctx := context.Background()
	event := core.Event{
		Topic:    "new_order",
		Metadata: map[string]any{core.ExecutionIDMetadataKey: "exec-1"},
		Body:     map[string]any{"order_id": "ABC"},
	}
	s.Require().NoError(bus.Publish(ctx, event))

	got, _, err := bus.Get(ctx, "new_order", "exec-1")
	s.Require().NoError(err)
	got.Body["order_id"] = "mutated"

	again, _, err := bus.Get(ctx, "new_order", "exec-1")
	s.Require().NoError(err)
	s.Assert().Equal("ABC", again.Body["order_id"])
}

func TestBusTestSuite(t *testing.T) {
	suite.Run(t, new(BusTestSuite))
}
