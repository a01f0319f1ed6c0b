package application

import (
	"context"
	"strings"
	"time"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/grupo99/execution-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// operation traces one use case run and records its outcome
type operation struct {
	ctx   context.Context
	name  string
	span  trace.Span
	start time.Time
}

func startOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *operation) {
	ctx, span := telemetry.StartSpan(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &operation{ctx: ctx, name: name, span: span, start: time.Now()}
}

func (o *operation) end(err error) {
	status := "success"
	if err != nil {
		status = "error"
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}

	telemetry.RecordCounter(o.ctx, "execution_operations_total", "Total execution operations", 1,
		attribute.String("operation", o.name),
		attribute.String("status", status),
	)
	telemetry.RecordHistogram(o.ctx, "execution_operation_duration_seconds", "Execution operation duration", time.Since(o.start).Seconds(),
		attribute.String("operation", o.name),
		attribute.String("status", status),
	)

	o.span.End()
}

func requireID(field, value string) (models.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &domain.InvalidArgumentError{Field: field, Reason: "is required"}
	}
	return models.ID(value), nil
}
