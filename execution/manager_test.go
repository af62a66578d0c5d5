package execution

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/corvid-labs/blueprint-engine/core"
	memorybus "github.com/corvid-labs/blueprint-engine/eventbus/memory"
	"github.com/corvid-labs/blueprint-engine/store/memorystore"
)

type sequentialIDGenerator struct{ next int }

func (g *sequentialIDGenerator) GenerateID() (string, error) {
	g.next++
	return fmt.Sprintf("id-%d", g.next), nil
}

// checkingPublisher runs check when an event is published, so a test can
// observe what the store already holds at that moment.
type checkingPublisher struct {
	check func() error
	err   error
}

func (p *checkingPublisher) Publish(ctx context.Context, event core.Event) error {
	p.err = p.check()
	return nil
}

type ManagerTestSuite struct {
	suite.Suite
}

func (s *ManagerTestSuite) Test_start_execution_stamps_boot_event_and_persists_states() {
	st := memorystore.New()
	bus := memorybus.New()
	idGen := &sequentialIDGenerator{}
	mgr := NewManager(st, bus, idGen, nil)

	bp := core.Blueprint{
		Name: "deposit-flow",
		Instructions: []core.BlueprintInstruction{
			{Conditions: []string{"new_order"}},
			{Conditions: []string{"deposit_status"}},
		},
	}
	bootEvent := core.Event{Topic: "new_order", Body: map[string]any{"order_id": "ABC"}}

	ctx := context.Background()
	execution, err := mgr.StartExecution(ctx, bp, bootEvent, map[string]any{"order_id": "ABC"})
	s.Require().NoError(err)

	s.Assert().Equal("id-1", execution.ExecutionID)
	s.Require().Len(execution.InstructionStates, 2)
	for _, state := range execution.InstructionStates {
		s.Assert().Equal(core.InstructionStatusIdle, state.Status)
		s.Assert().Equal(execution.ExecutionID, state.BlueprintExecutionID)
	}

	published, found, err := bus.Get(ctx, "new_order", execution.ExecutionID)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Assert().Equal(execution.ExecutionID, published.ExecutionID())

	storedCtx, err := st.GetExecutionContext(ctx, execution.ExecutionID)
	s.Require().NoError(err)
	s.Assert().Equal(execution.ExecutionContext, storedCtx)
}

func (s *ManagerTestSuite) Test_get_execution_round_trips_the_blueprint() {
	st := memorystore.New()
	bus := memorybus.New()
	idGen := &sequentialIDGenerator{}
	mgr := NewManager(st, bus, idGen, nil)

	bp := core.Blueprint{
		Name: "deposit-flow",
		Instructions: []core.BlueprintInstruction{
			{Conditions: []string{"new_order"}},
		},
	}
	ctx := context.Background()
	started, err := mgr.StartExecution(ctx, bp, core.Event{Topic: "new_order"}, map[string]any{"order_id": "ABC"})
	s.Require().NoError(err)

	got, err := mgr.GetExecution(ctx, started.ExecutionID)
	s.Require().NoError(err)
	s.Assert().Equal(bp.Name, got.Blueprint.Name)
	s.Assert().Equal(bp.Instructions[0].Conditions, got.Blueprint.Instructions[0].Conditions)
	s.Assert().Equal(started.ExecutionContext, got.ExecutionContext)
}

func (s *ManagerTestSuite) Test_boot_event_is_published_after_states_are_stored() {
	// A worker leasing at the moment the boot event is published must find
	// a row: that only holds if store() fully happened before publish().
	ctx := context.Background()
	st := memorystore.New()
	idGen := &sequentialIDGenerator{}

	var leased *core.BlueprintInstructionState
	bus := &checkingPublisher{check: func() (err error) {
		leased, err = st.Lease(ctx, "worker-1")
		return err
	}}
	mgr := NewManager(st, bus, idGen, nil)

	bp := core.Blueprint{
		Name:         "single",
		Instructions: []core.BlueprintInstruction{{Conditions: []string{"new_order"}}},
	}
	_, err := mgr.StartExecution(ctx, bp, core.Event{Topic: "new_order"}, nil)
	s.Require().NoError(err)

	s.Require().NoError(bus.err)
	s.Require().NotNil(leased)
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}
