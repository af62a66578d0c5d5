package postgres

// One function per statement, each returning a pgx named-args query
// string.

func createTableQuery() string {
	return `
	CREATE TABLE IF NOT EXISTS event_model (
		topic TEXT NOT NULL,
		execution_id TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		body JSONB NOT NULL DEFAULT '{}'::jsonb,
		PRIMARY KEY (topic, execution_id)
	)`
}

func upsertEventQuery() string {
	return `
	INSERT INTO event_model (topic, execution_id, metadata, body)
	VALUES (@topic, @executionId, @metadata, @body)
	ON CONFLICT (topic, execution_id)
	DO UPDATE SET metadata = @metadata, body = @body`
}

func eventQuery() string {
	return `
	SELECT metadata, body FROM event_model
	WHERE topic = @topic AND execution_id = @executionId`
}
