package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "streamgate"

// Operation ties one logical unit of work to a span, a scoped logger,
// and the operation metrics. Decision checks run per item, so routine
// start/finish lines stay at debug level.
type Operation struct {
	ctx     context.Context
	span    trace.Span
	metrics *Metrics
	name    string
	start   time.Time
	logger  *slog.Logger
}

// StartOperation opens a span for name and returns the operation plus
// the span-carrying context. Callers must End exactly once.
func StartOperation(ctx context.Context, m *Metrics, name string, attrs ...attribute.KeyValue) (*Operation, context.Context) {
	ctx, span := StartSpan(ctx, name, attrs...)
	logger := slog.Default().With("operation", name)
	logger.DebugContext(ctx, "operation started")

	op := &Operation{
		ctx:     ctx,
		span:    span,
		metrics: m,
		name:    name,
		start:   time.Now(),
		logger:  logger,
	}
	return op, ctx
}

// End closes the span and records duration and outcome. A nil err
// counts as ok.
func (o *Operation) End(err error) {
	elapsed := time.Since(o.start).Seconds()
	status := "ok"
	if err != nil {
		status = "error"
		o.logger.ErrorContext(o.ctx, "operation failed", "error", err, "duration", elapsed)
	} else {
		o.logger.DebugContext(o.ctx, "operation completed", "duration", elapsed)
	}

	EndSpan(o.span, err)
	o.metrics.OperationDuration.WithLabelValues(o.name, status).Observe(elapsed)
	o.metrics.OperationTotal.WithLabelValues(o.name, status).Inc()
}

// StartSpan opens a span on the package tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
