package blueprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/corvid-labs/blueprint-engine/core"
)

type stubAdapter struct{}

func (stubAdapter) Adapt(ctx context.Context, execCtx map[string]any, events []core.Event) (core.AdapterDecision, error) {
	return core.AdapterDecision{Proceed: true, Value: map[string]any{"foo": "bar"}}, nil
}

type stubAction struct{}

func (stubAction) Act(ctx context.Context, adapterResult any) error { return nil }

func newTestNamespace() *Namespace {
	ns := NewNamespace()
	ns.RegisterAdapter("basic_adapter", func() core.Adapter { return stubAdapter{} })
	ns.RegisterAction("check_deposit", func(bus core.EventPublisher, metadata map[string]any) core.Action {
		return stubAction{}
	})
	ns.RegisterAction("transfer_to_exchange", func(bus core.EventPublisher, metadata map[string]any) core.Action {
		return stubAction{}
	})
	return ns
}

type ManagerTestSuite struct {
	suite.Suite
}

func (s *ManagerTestSuite) validDefinition() Definition {
	return Definition{
		Name: "deposit-flow",
		Instructions: []InstructionDefinition{
			{
				Conditions: []string{"new_order"},
				Outcome:    InstructionOutcomeDefinition{Action: "check_deposit", Adapter: "basic_adapter"},
			},
			{
				Conditions: []string{"deposit_status"},
				Outcome:    InstructionOutcomeDefinition{Action: "transfer_to_exchange", Adapter: "basic_adapter"},
			},
		},
	}
}

func (s *ManagerTestSuite) Test_add_blueprint_succeeds_for_valid_definition() {
	mgr := NewManager(newTestNamespace())
	bp, err := mgr.AddBlueprint(s.validDefinition())
	s.Require().NoError(err)
	s.Assert().Equal("deposit-flow", bp.Name)
	s.Require().Len(bp.Instructions, 2)
	s.Assert().NotNil(bp.Instructions[0].Outcome.Action)
	s.Assert().NotNil(bp.Instructions[0].Outcome.Adapter)
}

func (s *ManagerTestSuite) Test_add_blueprint_fails_on_empty_definition() {
	mgr := NewManager(newTestNamespace())
	_, err := mgr.AddBlueprint(Definition{})
	s.Assert().Error(err)
}

func (s *ManagerTestSuite) Test_add_blueprint_fails_on_missing_name() {
	mgr := NewManager(newTestNamespace())
	def := s.validDefinition()
	def.Name = ""
	_, err := mgr.AddBlueprint(def)
	s.Assert().Error(err)
}

func (s *ManagerTestSuite) Test_add_blueprint_fails_on_empty_instructions() {
	mgr := NewManager(newTestNamespace())
	_, err := mgr.AddBlueprint(Definition{Name: "empty"})
	s.Assert().Error(err)
}

func (s *ManagerTestSuite) Test_add_blueprint_fails_on_missing_conditions() {
	mgr := NewManager(newTestNamespace())
	def := s.validDefinition()
	def.Instructions[0].Conditions = nil
	_, err := mgr.AddBlueprint(def)
	s.Assert().Error(err)
}

func (s *ManagerTestSuite) Test_add_blueprint_fails_on_missing_outcome_fields() {
	mgr := NewManager(newTestNamespace())
	def := s.validDefinition()
	def.Instructions[0].Outcome.Action = ""
	_, err := mgr.AddBlueprint(def)
	s.Assert().Error(err)
}

func (s *ManagerTestSuite) Test_add_blueprint_fails_on_unknown_action_name() {
	mgr := NewManager(newTestNamespace())
	def := s.validDefinition()
	def.Instructions[0].Outcome.Action = "does_not_exist"
	_, err := mgr.AddBlueprint(def)
	s.Assert().Error(err)
}

func (s *ManagerTestSuite) Test_add_blueprint_fails_on_duplicate_name() {
	mgr := NewManager(newTestNamespace())
	_, err := mgr.AddBlueprint(s.validDefinition())
	s.Require().NoError(err)

	_, err = mgr.AddBlueprint(s.validDefinition())
	s.Assert().Error(err)
}

func (s *ManagerTestSuite) Test_get_returns_registered_blueprint() {
	mgr := NewManager(newTestNamespace())
	_, err := mgr.AddBlueprint(s.validDefinition())
	s.Require().NoError(err)

	bp, err := mgr.Get("deposit-flow")
	s.Require().NoError(err)
	s.Assert().Equal("deposit-flow", bp.Name)
}

func (s *ManagerTestSuite) Test_get_fails_for_unknown_name() {
	mgr := NewManager(newTestNamespace())
	_, err := mgr.Get("missing")
	s.Assert().Error(err)
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}
