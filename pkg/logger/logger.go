// Package logger provides the structured logging contract for the Pokedex Auth Service.
// Implementations live in internal/infrastructure/monitoring; packages depend only on this
// interface so tests can pass NewNoopLogger.
package logger

import "context"

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger defines the interface for structured, context-aware logging.
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, msg string, fields ...Fields)

	// Info logs an informational message
	Info(ctx context.Context, msg string, fields ...Fields)

	// Warn logs a warning message
	Warn(ctx context.Context, msg string, fields ...Fields)

	// Error logs an error message together with the causing error
	Error(ctx context.Context, msg string, err error, fields ...Fields)

	// Fatal logs a fatal message and exits the process
	Fatal(ctx context.Context, msg string, err error, fields ...Fields)

	// WithFields returns a logger that adds fields to every entry
	WithFields(fields Fields) Logger

	// ForContext returns the request-scoped logger stored in ctx, or the receiver
	ForContext(ctx context.Context) Logger
}

// Merge flattens several field sets into one. Later keys win.
func Merge(fields ...Fields) Fields {
	out := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}
