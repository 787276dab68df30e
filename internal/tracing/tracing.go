// Package tracing records spans around calls to external services.
// Spans are written to the structured log; they never change call results.
package tracing

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/todoapp/todo-backend/internal/auth"
)

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// NewID returns a new sortable trace or span identifier.
func NewID() string {
	return ulid.Make().String()
}

// ContextWithTraceID stores traceID in ctx.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the trace ID in ctx, or "".
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

func spanIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(spanIDKey).(string)
	return id
}

// Tracer starts spans for one named service (e.g. "dynamodb", "s3").
type Tracer struct {
	service string
	logger  *slog.Logger
	now     func() time.Time
}

// NewTracer creates a Tracer that logs through logger.
func NewTracer(service string, logger *slog.Logger) *Tracer {
	return &Tracer{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// Span is one timed operation.
type Span struct {
	tracer   *Tracer
	ctx      context.Context
	op       string
	id       string
	parentID string
	start    time.Time
}

// Start opens a span for op. The returned context carries the span as parent
// for nested spans.
func (t *Tracer) Start(ctx context.Context, op string) (context.Context, *Span) {
	s := &Span{
		tracer:   t,
		op:       op,
		id:       NewID(),
		parentID: spanIDFromContext(ctx),
		start:    t.now(),
	}
	s.ctx = context.WithValue(ctx, spanIDKey, s.id)
	return s.ctx, s
}

// ID returns the span identifier.
func (s *Span) ID() string {
	return s.id
}

// End closes the span and logs it with the outcome of err.
func (s *Span) End(err error) {
	attrs := []slog.Attr{
		slog.String("service", s.tracer.service),
		slog.String("operation", s.op),
		slog.String("trace_id", TraceIDFromContext(s.ctx)),
		slog.String("span_id", s.id),
		slog.Float64("duration_ms", float64(s.tracer.now().Sub(s.start).Microseconds())/1000),
	}
	if s.parentID != "" {
		attrs = append(attrs, slog.String("parent_span_id", s.parentID))
	}
	if userID := auth.UserIDFromContext(s.ctx); userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}

	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	s.tracer.logger.LogAttrs(s.ctx, level, "span", attrs...)
}
