package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	stageKey     contextKey = "stage"
	partitionKey contextKey = "partition"
)

// WithRunID annotates context with the run identifier.
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

// WithStage annotates context with the stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithPartition annotates context with the dataset partition being processed.
func WithPartition(ctx context.Context, partition string) context.Context {
	if partition == "" {
		return ctx
	}
	return context.WithValue(ctx, partitionKey, partition)
}

// PartitionFromContext returns the partition name if present.
func PartitionFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(partitionKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
