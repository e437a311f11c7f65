// Package instrumented decorates a vector repository with Prometheus
// metrics and OpenTelemetry spans.
package instrumented

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

const tracerName = "github.com/custodia-labs/vidrag/storage"

// Outcome label values.
const (
	outcomeOK         = "ok"
	outcomeValidation = "validation_error"
	outcomeError      = "error"
)

// Ensure Repository implements the interfaces.
var (
	_ driven.VectorRepository = (*Repository)(nil)
	_ driven.RecordCounter    = (*Repository)(nil)
)

// Repository wraps another repository and records every call.
type Repository struct {
	next    driven.VectorRepository
	backend string
	metrics *Metrics
	tracer  trace.Tracer
}

// Wrap decorates next. backend labels the metrics and spans.
func Wrap(next driven.VectorRepository, backend string, metrics *Metrics) *Repository {
	if metrics == nil {
		metrics = DefaultMetrics()
	}
	return &Repository{
		next:    next,
		backend: backend,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
	}
}

// Unwrap returns the decorated repository.
func (r *Repository) Unwrap() driven.VectorRepository {
	return r.next
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrValidation):
		return outcomeValidation
	default:
		return outcomeError
	}
}

// observe starts a span and returns a func that ends it and records metrics.
func (r *Repository) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	attrs = append(attrs, attribute.String("db.system", r.backend))
	ctx, span := r.tracer.Start(ctx, "repository."+op, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		r.metrics.operations.WithLabelValues(op, r.backend, outcome(err)).Inc()
		r.metrics.duration.WithLabelValues(op, r.backend).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Initialize delegates to the wrapped repository.
func (r *Repository) Initialize(ctx context.Context) (err error) {
	ctx, done := r.observe(ctx, "initialize")
	defer func() { done(err) }()
	return r.next.Initialize(ctx)
}

// Insert delegates to the wrapped repository.
func (r *Repository) Insert(ctx context.Context, rec domain.Record) (err error) {
	ctx, done := r.observe(ctx, "insert", attribute.String("record.id", rec.ID))
	defer func() { done(err) }()
	return r.next.Insert(ctx, rec)
}

// Search delegates to the wrapped repository and records the result count.
func (r *Repository) Search(ctx context.Context, query []float32, matchThreshold float64, matchCount int) (results []domain.QueryResult, err error) {
	ctx, done := r.observe(ctx, "search",
		attribute.Float64("search.threshold", matchThreshold),
		attribute.Int("search.count", matchCount),
	)
	defer func() { done(err) }()

	results, err = r.next.Search(ctx, query, matchThreshold, matchCount)
	if err == nil {
		r.metrics.results.WithLabelValues(r.backend).Observe(float64(len(results)))
	}
	return results, err
}

// Count delegates when the wrapped repository can count records.
func (r *Repository) Count(ctx context.Context) (n int, err error) {
	counter, ok := r.next.(driven.RecordCounter)
	if !ok {
		return 0, fmt.Errorf("%w: %s cannot count records", domain.ErrUnsupported, r.backend)
	}
	ctx, done := r.observe(ctx, "count")
	defer func() { done(err) }()
	return counter.Count(ctx)
}
