// Package telemetry holds the OpenTelemetry instruments used by the
// reconciliation pipeline. Instruments come from the global providers, so they
// are no-ops until the embedding application installs an SDK.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "trackify"

var (
	Tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	ReconcileTotal, _      = meter.Int64Counter("reconcile.total", metric.WithDescription("Reconciliation cycles by outcome"))
	ReconcileDuration, _   = meter.Float64Histogram("reconcile.duration", metric.WithDescription("Reconciliation cycle duration in seconds"), metric.WithUnit("s"))
	TransactionsFetched, _ = meter.Int64Counter("reconcile.transactions_fetched", metric.WithDescription("Transactions fetched from the bank source"))
	MirrorTotal, _         = meter.Int64Counter("mirror.operations", metric.WithDescription("Mirror operations by op and outcome"))
	ManualMutations, _     = meter.Int64Counter("transactions.manual_mutations", metric.WithDescription("Manual transaction adds and deletes"))
)

// Outcome attribute values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// StartSpan starts a span on the package tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Outcome returns the outcome attribute for err.
func Outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", OutcomeError)
	}
	return attribute.String("outcome", OutcomeSuccess)
}
