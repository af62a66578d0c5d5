// Package postgrespool is the durable Store backend: pgxpool holds
// executions and instruction states as the system of record, SQS is the
// dispatch queue workers lease from. A crashed worker's unacked message
// becomes visible again after SQS's visibility timeout, giving the
// engine crash-safe at-least-once redelivery without any polling loop
// of its own.
package postgrespool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvid-labs/blueprint-engine/core"
	"github.com/corvid-labs/blueprint-engine/serialisation"
	"github.com/corvid-labs/blueprint-engine/store"
)

type backend struct {
	connPool *pgxpool.Pool
	queue    *sqsQueue
	resolver serialisation.OutcomeResolver
}

// New builds a Store backed by connPool for durable rows and an SQS
// queue named queueName for dispatch. resolver turns the action/adapter
// names carried on the wire back into the factories registered in the
// blueprint namespace.
func New(ctx context.Context, connPool *pgxpool.Pool, sqsClient *sqs.Client, queueName string, resolver serialisation.OutcomeResolver) (*store.Base, error) {
	queue, err := newSQSQueue(ctx, sqsClient, queueName)
	if err != nil {
		return nil, fmt.Errorf("build postgrespool store: %w", err)
	}
	b := &backend{
		connPool: connPool,
		queue:    queue,
		resolver: resolver,
	}
	return store.NewBase(b), nil
}

// Migrate creates blueprint_execution_model and
// blueprint_instruction_state_model if they do not already exist. It
// takes a bare pool so the migrate CLI command can run it without also
// standing up an SQS client.
func Migrate(ctx context.Context, connPool *pgxpool.Pool) error {
	if _, err := connPool.Exec(ctx, createExecutionTableQuery()); err != nil {
		return fmt.Errorf("migrate blueprint_execution_model: %w", err)
	}
	if _, err := connPool.Exec(ctx, createInstructionStateTableQuery()); err != nil {
		return fmt.Errorf("migrate blueprint_instruction_state_model: %w", err)
	}
	return nil
}

func (b *backend) PersistExecution(ctx context.Context, execution core.BlueprintExecution) error {
	execCtxRaw, err := serialisation.EncodeExecutionContext(execution.ExecutionContext)
	if err != nil {
		return fmt.Errorf("encode execution context: %w", err)
	}
	blueprintRaw, err := serialisation.EncodeBlueprint(execution.Blueprint)
	if err != nil {
		return fmt.Errorf("encode blueprint: %w", err)
	}

	_, err = b.connPool.Exec(ctx, insertExecutionQuery(), pgx.NamedArgs{
		"executionId":      execution.ExecutionID,
		"blueprint":        blueprintRaw,
		"executionContext": execCtxRaw,
	})
	if err != nil {
		return fmt.Errorf("insert blueprint_execution_model: %w", err)
	}
	return nil
}

func (b *backend) PersistInstructionState(ctx context.Context, state core.BlueprintInstructionState) error {
	conditions, err := json.Marshal(state.Instruction.Conditions)
	if err != nil {
		return fmt.Errorf("encode conditions: %w", err)
	}
	terminationConditions, err := json.Marshal(state.Instruction.TerminationConditions)
	if err != nil {
		return fmt.Errorf("encode termination conditions: %w", err)
	}

	_, err = b.connPool.Exec(ctx, insertInstructionStateQuery(), pgx.NamedArgs{
		"id":                    state.ID,
		"executionId":           state.BlueprintExecutionID,
		"conditions":            conditions,
		"terminationConditions": terminationConditions,
		"actionName":            state.Instruction.Outcome.ActionName,
		"adapterName":           state.Instruction.Outcome.AdapterName,
		"status":                string(state.Status),
	})
	if err != nil {
		return fmt.Errorf("insert blueprint_instruction_state_model: %w", err)
	}
	return nil
}

func (b *backend) Enqueue(ctx context.Context, state core.BlueprintInstructionState) error {
	payload, err := serialisation.EncodeInstructionState(state)
	if err != nil {
		return fmt.Errorf("encode instruction state for dispatch: %w", err)
	}
	return b.queue.send(ctx, string(payload))
}

func (b *backend) ReceiveOne(ctx context.Context, workerID string) (*core.BlueprintInstructionState, store.LeaseHandle, error) {
	body, receiptHandle, err := b.queue.receive(ctx)
	if err != nil {
		return nil, nil, err
	}
	if body == "" {
		return nil, nil, nil
	}

	state, err := serialisation.DecodeInstructionState([]byte(body), b.resolver)
	if err != nil {
		return nil, nil, fmt.Errorf("decode dispatched instruction state: %w", err)
	}

	// The row, not the queue message, is the source of truth for status:
	// a message can be redelivered for a state another worker already
	// finished. Re-read the current row and skip dispatch if it is
	// already terminal. A PROCESSING row here means the previous lease
	// expired (its worker crashed or overran), so it is dispatched again.
	current, err := b.instructionStateByID(ctx, state.ID)
	if err != nil {
		return nil, nil, err
	}
	if current == nil || current.Status.IsTerminal() {
		_ = b.queue.delete(ctx, receiptHandle)
		return nil, nil, nil
	}

	return current, receiptHandle, nil
}

func (b *backend) SetStatus(ctx context.Context, stateID string, status core.InstructionStatus) error {
	_, err := b.connPool.Exec(ctx, setInstructionStateStatusQuery(), pgx.NamedArgs{
		"id":     stateID,
		"status": string(status),
	})
	if err != nil {
		return fmt.Errorf("set instruction state status: %w", err)
	}
	return nil
}

func (b *backend) DeleteLeaseMessage(ctx context.Context, handle store.LeaseHandle) error {
	receiptHandle, _ := handle.(string)
	return b.queue.delete(ctx, receiptHandle)
}

func (b *backend) GetExecutionContext(ctx context.Context, executionID string) (map[string]any, error) {
	var raw []byte
	err := b.connPool.QueryRow(ctx, executionContextQuery(), pgx.NamedArgs{"executionId": executionID}).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("execution %s: %w", executionID, pgx.ErrNoRows)
		}
		return nil, fmt.Errorf("get execution context: %w", err)
	}
	return serialisation.DecodeExecutionContext(raw)
}

func (b *backend) GetExecution(ctx context.Context, executionID string) (core.BlueprintExecution, error) {
	var (
		id                       string
		blueprintRaw, execCtxRaw []byte
	)
	err := b.connPool.QueryRow(ctx, executionByIDQuery(), pgx.NamedArgs{"executionId": executionID}).Scan(
		&id, &blueprintRaw, &execCtxRaw,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.BlueprintExecution{}, fmt.Errorf("execution %s: %w", executionID, pgx.ErrNoRows)
		}
		return core.BlueprintExecution{}, fmt.Errorf("get execution: %w", err)
	}

	bp, err := serialisation.DecodeBlueprint(blueprintRaw, b.resolver)
	if err != nil {
		return core.BlueprintExecution{}, fmt.Errorf("decode blueprint: %w", err)
	}
	execCtx, err := serialisation.DecodeExecutionContext(execCtxRaw)
	if err != nil {
		return core.BlueprintExecution{}, fmt.Errorf("decode execution context: %w", err)
	}

	return core.BlueprintExecution{
		ExecutionID:      id,
		ExecutionContext: execCtx,
		Blueprint:        bp,
	}, nil
}

func (b *backend) instructionStateByID(ctx context.Context, id string) (*core.BlueprintInstructionState, error) {
	var (
		stateID, executionID, actionName, adapterName, status string
		conditionsRaw, terminationConditionsRaw                []byte
	)
	err := b.connPool.QueryRow(ctx, instructionStateByIDQuery(), pgx.NamedArgs{"id": id}).Scan(
		&stateID, &executionID, &conditionsRaw, &terminationConditionsRaw, &actionName, &adapterName, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get instruction state %s: %w", id, err)
	}

	var conditions, terminationConditions []string
	if err := json.Unmarshal(conditionsRaw, &conditions); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}
	if err := json.Unmarshal(terminationConditionsRaw, &terminationConditions); err != nil {
		return nil, fmt.Errorf("decode termination conditions: %w", err)
	}

	actionFactory, err := b.resolver.ResolveAction(actionName)
	if err != nil {
		return nil, err
	}
	adapterFactory, err := b.resolver.ResolveAdapter(adapterName)
	if err != nil {
		return nil, err
	}

	return &core.BlueprintInstructionState{
		ID:                   stateID,
		BlueprintExecutionID: executionID,
		Instruction: core.BlueprintInstruction{
			Conditions:            conditions,
			TerminationConditions: terminationConditions,
			Outcome: core.BlueprintInstructionOutcome{
				ActionName:  actionName,
				AdapterName: adapterName,
				Action:      actionFactory,
				Adapter:     adapterFactory,
			},
		},
		Status: core.InstructionStatus(status),
	}, nil
}
