package logging

import (
	"context"
	"log/slog"

	"ciderpress/internal/services"
)

const (
	// FieldSliceID is the standardized structured logging key for catalog
	// slice identifiers.
	FieldSliceID = "slice_id"
	// FieldStep is the standardized structured logging key for batch step
	// names.
	FieldStep = "step"
	// FieldCorrelationID is the standardized structured logging key for
	// batch correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.SliceIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldSliceID, id))
	}
	if step, ok := services.StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
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
	return logger.With(Args(fields...)...)
}
