package logging

import (
	"context"
	"log/slog"

	"siphon/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for pipeline run identifiers.
	FieldRunID = "run_id"
	// FieldContainer is the standardized structured logging key for file container names.
	FieldContainer = "container"
	// FieldFileID is the standardized structured logging key for normalized file identifiers.
	FieldFileID = "file_id"
	// FieldCollection is the standardized structured logging key for collection names.
	FieldCollection = "collection"
	// FieldObservation is the standardized structured logging key for observation identifiers.
	FieldObservation = "observation_id"
	// FieldProduct is the standardized structured logging key for plane product identifiers.
	FieldProduct = "product_id"
	// FieldURI is the standardized structured logging key for artifact and observation URIs.
	FieldURI = "uri"
	// FieldAttempt is the standardized structured logging key for retry attempt counters.
	FieldAttempt = "attempt"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if name, ok := services.ContainerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldContainer, name))
	}
	if obs, ok := services.ObservationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldObservation, obs))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
