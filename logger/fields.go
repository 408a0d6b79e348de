package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across smrt.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"

	// Components
	FieldComponent = "component"
	FieldSource    = "source"
	FieldProvider  = "provider"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldQuery     = "query"
	FieldIntent    = "intent"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount      = "count"
	FieldTotalCount = "total_count"

	// Status
	FieldStatus = "status"

	// Data
	FieldTable = "table"
	FieldFile  = "file"
	FieldRow   = "row"

	// Network
	FieldAddress = "address"
	FieldTopic   = "topic"
)

type contextKey string

const requestIDKey contextKey = "logger_request_id"

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}
	if requestID := RequestID(ctx); requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	return fields
}

// LoggerFromContext returns base enriched with the fields carried by ctx.
// A nil base falls back to the global logger.
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
//	type Store struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func New() *Store {
//	    return &Store{logger: logger.ComponentLogger("store")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
