package core

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces the random identifiers used for execution ids and
// instruction state ids. Injected so tests can supply deterministic ids.
type IDGenerator interface {
	GenerateID() (string, error)
}

// UUIDGenerator generates RFC-4122 random UUIDs rendered as strings.
type UUIDGenerator struct{}

func (UUIDGenerator) GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Clock abstracts wall-clock time so the executor's rundata timestamps
// and any retention/cleanup logic can be driven by a fixed clock in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// LogField is a single structured logging field, independent of the
// concrete logging library wired in by internal/logging.
type LogField struct {
	Key   string
	Value any
}

func StringLogField(key, value string) LogField { return LogField{Key: key, Value: value} }
func ErrorLogField(key string, err error) LogField {
	return LogField{Key: key, Value: err}
}
func AnyLogField(key string, value any) LogField { return LogField{Key: key, Value: value} }

// Logger is the narrow structured-logging interface every component in
// the engine depends on instead of reaching for a global logger or the
// standard library's log package directly.
type Logger interface {
	Debug(msg string, fields ...LogField)
	Info(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	Error(msg string, fields ...LogField)
	// Named returns a child logger that prefixes messages with name,
	// mirroring zap's SugaredLogger.Named behaviour.
	Named(name string) Logger
}
