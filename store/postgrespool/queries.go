package postgrespool

// One function per statement, each returning a pgx named-args query
// string.

func createExecutionTableQuery() string {
	return `
	CREATE TABLE IF NOT EXISTS blueprint_execution_model (
		execution_id TEXT PRIMARY KEY,
		blueprint JSONB NOT NULL,
		execution_context JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
}

func createInstructionStateTableQuery() string {
	return `
	CREATE TABLE IF NOT EXISTS blueprint_instruction_state_model (
		id TEXT PRIMARY KEY,
		blueprint_execution_id TEXT NOT NULL REFERENCES blueprint_execution_model(execution_id),
		conditions JSONB NOT NULL DEFAULT '[]'::jsonb,
		termination_conditions JSONB NOT NULL DEFAULT '[]'::jsonb,
		action_name TEXT NOT NULL,
		adapter_name TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
}

func insertExecutionQuery() string {
	return `
	INSERT INTO blueprint_execution_model (execution_id, blueprint, execution_context)
	VALUES (@executionId, @blueprint, @executionContext)`
}

func insertInstructionStateQuery() string {
	return `
	INSERT INTO blueprint_instruction_state_model (
		id, blueprint_execution_id, conditions, termination_conditions,
		action_name, adapter_name, status
	) VALUES (
		@id, @executionId, @conditions, @terminationConditions,
		@actionName, @adapterName, @status
	)
	ON CONFLICT (id) DO UPDATE SET
		conditions = @conditions,
		termination_conditions = @terminationConditions,
		action_name = @actionName,
		adapter_name = @adapterName,
		status = @status,
		updated_at = now()`
}

func setInstructionStateStatusQuery() string {
	return `
	UPDATE blueprint_instruction_state_model
	SET status = @status, updated_at = now()
	WHERE id = @id`
}

func instructionStateByIDQuery() string {
	return `
	SELECT id, blueprint_execution_id, conditions, termination_conditions,
		action_name, adapter_name, status
	FROM blueprint_instruction_state_model
	WHERE id = @id`
}

func executionContextQuery() string {
	return `
	SELECT execution_context FROM blueprint_execution_model
	WHERE execution_id = @executionId`
}

func executionByIDQuery() string {
	return `
	SELECT execution_id, blueprint, execution_context
	FROM blueprint_execution_model
	WHERE execution_id = @executionId`
}
