package services

import "context"

type contextKey string

const (
	runIDKey       contextKey = "run_id"
	containerKey   contextKey = "container"
	observationKey contextKey = "observation"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithContainer annotates context with the container being drained.
func WithContainer(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, containerKey, name)
}

// ContainerFromContext returns the container name if present.
func ContainerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(containerKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithObservation annotates context with the observation under ingestion.
func WithObservation(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, observationKey, id)
}

// ObservationFromContext returns the observation identifier if present.
func ObservationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(observationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
