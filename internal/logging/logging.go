// Package logging adapts zap into the core.Logger interface every
// component in the engine depends on. Production mode gets the JSON
// encoder, development mode gets the human-readable console encoder, and
// the level is configurable.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/corvid-labs/blueprint-engine/core"
)

// Logger wraps a *zap.Logger to satisfy core.Logger.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger for environment ("development" or "production")
// at the given level ("debug", "info", "warn", "error").
func New(environment, level string) (*Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if environment == "development" {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	zapCore := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), zapLevel)
	return &Logger{z: zap.New(zapCore)}, nil
}

func (l *Logger) Debug(msg string, fields ...core.LogField) { l.z.Debug(msg, toZapFields(fields)...) }
func (l *Logger) Info(msg string, fields ...core.LogField)  { l.z.Info(msg, toZapFields(fields)...) }
func (l *Logger) Warn(msg string, fields ...core.LogField)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l *Logger) Error(msg string, fields ...core.LogField) { l.z.Error(msg, toZapFields(fields)...) }

func (l *Logger) Named(name string) core.Logger {
	return &Logger{z: l.z.Named(name)}
}

func toZapFields(fields []core.LogField) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
