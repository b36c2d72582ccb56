package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across bufkit.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldInvocationID = "invocation_id"
	FieldComponent    = "component"

	// Commands
	FieldCommand = "command"
	FieldArgs    = "args"
	FieldDir     = "dir"

	// Tool
	FieldBinary       = "binary"
	FieldVersion      = "version"
	FieldVersionRange = "version_range"

	// Server
	FieldStatus = "status"
	FieldBusy   = "busy"
	FieldPID    = "pid"

	// Files and paths
	FieldPath   = "path"
	FieldModule = "module"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError    = "error"
	FieldExitCode = "exit_code"
	FieldStderr   = "stderr"
)

type contextKey string

const (
	invocationIDKey contextKey = "logger_invocation_id"
	componentKey    contextKey = "logger_component"
)

// WithInvocationID adds a command invocation ID to the context for logging
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationIDKey, id)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if id, ok := ctx.Value(invocationIDKey).(string); ok && id != "" {
		fields = append(fields, FieldInvocationID, id)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns base enriched with the fields carried by ctx.
func LoggerFromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	m := langserver.NewManager(langserver.Config{
//	    Logger: logger.ComponentLogger("langserver"),
//	})
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
