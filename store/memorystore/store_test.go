package memorystore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/corvid-labs/blueprint-engine/core"
)

type MemoryStoreTestSuite struct {
	suite.Suite
}

func (s *MemoryStoreTestSuite) newExecution(instructionCount int) core.BlueprintExecution {
	instructions := make([]core.BlueprintInstruction, instructionCount)
	for i := range instructions {
		instructions[i] = core.BlueprintInstruction{Conditions: []string{"new_order"}}
	}
	states := make([]core.BlueprintInstructionState, instructionCount)
	for i := range states {
		states[i] = core.BlueprintInstructionState{
			ID:                   idFor(i),
			BlueprintExecutionID: "exec-1",
			Instruction:          instructions[i],
			Status:               core.InstructionStatusIdle,
		}
	}
	return core.BlueprintExecution{
		ExecutionID:      "exec-1",
		ExecutionContext: map[string]any{"order_id": "ABC"},
		Blueprint:        core.Blueprint{Name: "bp", Instructions: instructions},
		InstructionStates: states,
	}
}

func idFor(i int) string {
	return "state-" + string(rune('a'+i))
}

func (s *MemoryStoreTestSuite) Test_store_then_get_execution_context_round_trips() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)

	s.Require().NoError(st.Store(ctx, execution))

	got, err := st.GetExecutionContext(ctx, "exec-1")
	s.Require().NoError(err)
	s.Assert().Equal(execution.ExecutionContext, got)
}

func (s *MemoryStoreTestSuite) Test_get_execution_returns_the_stored_blueprint() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)
	s.Require().NoError(st.Store(ctx, execution))

	got, err := st.GetExecution(ctx, "exec-1")
	s.Require().NoError(err)
	s.Assert().Equal(execution.Blueprint, got.Blueprint)
	s.Assert().Equal(execution.ExecutionContext, got.ExecutionContext)
}

func (s *MemoryStoreTestSuite) Test_duplicate_execution_id_fails() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)

	s.Require().NoError(st.Store(ctx, execution))
	err := st.Store(ctx, execution)
	s.Assert().Error(err)
}

func (s *MemoryStoreTestSuite) Test_lease_transitions_to_processing() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)
	s.Require().NoError(st.Store(ctx, execution))

	state, err := st.Lease(ctx, "worker-1")
	s.Require().NoError(err)
	s.Require().NotNil(state)
	s.Assert().Equal(core.InstructionStatusProcessing, state.Status)
}

func (s *MemoryStoreTestSuite) Test_lease_returns_nil_when_queue_empty() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)
	s.Require().NoError(st.Store(ctx, execution))

	first, err := st.Lease(ctx, "worker-1")
	s.Require().NoError(err)
	s.Require().NotNil(first)

	second, err := st.Lease(ctx, "worker-2")
	s.Require().NoError(err)
	s.Assert().Nil(second)
}

func (s *MemoryStoreTestSuite) Test_ack_success_marks_complete() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)
	s.Require().NoError(st.Store(ctx, execution))

	state, err := st.Lease(ctx, "worker-1")
	s.Require().NoError(err)

	s.Require().NoError(st.AckSuccess(ctx, state))
	s.Assert().Equal(core.InstructionStatusComplete, state.Status)
}

func (s *MemoryStoreTestSuite) Test_ack_failure_marks_failed() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)
	s.Require().NoError(st.Store(ctx, execution))

	state, err := st.Lease(ctx, "worker-1")
	s.Require().NoError(err)

	s.Require().NoError(st.AckFailure(ctx, state))
	s.Assert().Equal(core.InstructionStatusFailed, state.Status)
}

func (s *MemoryStoreTestSuite) Test_requeue_returns_to_idle_and_is_leasable_again() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)
	s.Require().NoError(st.Store(ctx, execution))

	state, err := st.Lease(ctx, "worker-1")
	s.Require().NoError(err)

	s.Require().NoError(st.Requeue(ctx, state))
	s.Assert().Equal(core.InstructionStatusIdle, state.Status)

	again, err := st.Lease(ctx, "worker-2")
	s.Require().NoError(err)
	s.Require().NotNil(again)
	s.Assert().Equal(state.ID, again.ID)
}

func (s *MemoryStoreTestSuite) Test_ack_success_is_idempotent() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)
	s.Require().NoError(st.Store(ctx, execution))

	state, err := st.Lease(ctx, "worker-1")
	s.Require().NoError(err)

	s.Require().NoError(st.AckSuccess(ctx, state))
	s.Require().NoError(st.AckSuccess(ctx, state))
	s.Assert().Equal(core.InstructionStatusComplete, state.Status)
}

func (s *MemoryStoreTestSuite) Test_concurrent_lease_only_one_winner() {
	st := New()
	ctx := context.Background()
	execution := s.newExecution(1)
	s.Require().NoError(st.Store(ctx, execution))

	const workers = 5
	results := make([]*core.BlueprintInstructionState, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			state, err := st.Lease(ctx, idFor(i))
			s.Require().NoError(err)
			results[i] = state
		}(i)
	}
	wg.Wait()

	leased := 0
	for _, r := range results {
		if r != nil {
			leased++
		}
	}
	s.Assert().Equal(1, leased)
}

func TestMemoryStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreTestSuite))
}
