package tracing

import (
	"context"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExecutionTrace records one tool call for the observability sink.
type ExecutionTrace struct {
	ToolName     string    `json:"tool_name"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Tracer is the observability facade the execution wrapper emits into.
// Implementations must never fail the traced call.
type Tracer interface {
	// ToolCallStart marks the beginning of a tool call and returns a
	// context carrying the call span and a short call ID.
	ToolCallStart(ctx context.Context, toolName string) context.Context
	// ToolCallEnd closes the call span opened by ToolCallStart.
	ToolCallEnd(ctx context.Context, et ExecutionTrace)
	// DBWrite records a database write tagged with table and operation.
	DBWrite(ctx context.Context, table, operation string)
	// DBRead records a database read tagged with table and operation.
	DBRead(ctx context.Context, table, operation string)
}

// OtelTracer emits OpenTelemetry spans plus structured log events.
type OtelTracer struct {
	tracerName string
}

// NewOtelTracer creates a Tracer backed by the named otel tracer.
func NewOtelTracer(tracerName string) *OtelTracer {
	if tracerName == "" {
		tracerName = "dispatch.tools"
	}
	return &OtelTracer{tracerName: tracerName}
}

// NewCallID generates a short per-call identifier.
func NewCallID() string {
	id, err := gonanoid.New(10)
	if err != nil {
		// nanoid only fails when the entropy source does
		return NewTraceID()
	}
	return id
}

func (t *OtelTracer) ToolCallStart(ctx context.Context, toolName string) context.Context {
	defer recoverTrace("tool_call_start")

	callID := NewCallID()
	ctx = WithCallID(ctx, callID)

	ctx, _ = StartSpan(
		ctx,
		t.tracerName,
		"tool.execute",
		attribute.String("tool.name", toolName),
		attribute.String("tool.call_id", callID),
	)

	logger := LoggerFromContext(ctx, log.Logger)
	logger.Debug().
		Str("tool", toolName).
		Msg("Tool call started")

	return ctx
}

func (t *OtelTracer) ToolCallEnd(ctx context.Context, et ExecutionTrace) {
	defer recoverTrace("tool_call_end")

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int64("tool.duration_ms", et.DurationMs),
		attribute.Bool("tool.success", et.Success),
	)
	if !et.Success {
		span.SetStatus(codes.Error, et.ErrorMessage)
	}
	span.End()

	logger := LoggerFromContext(ctx, log.Logger)
	event := logger.Debug().
		Str("tool", et.ToolName).
		Int64("duration_ms", et.DurationMs).
		Bool("success", et.Success)
	if et.ErrorMessage != "" {
		event = event.Str("error", et.ErrorMessage)
	}
	event.Msg("Tool call finished")
}

func (t *OtelTracer) DBWrite(ctx context.Context, table, operation string) {
	t.dbTrace(ctx, "db.write", table, operation)
}

func (t *OtelTracer) DBRead(ctx context.Context, table, operation string) {
	t.dbTrace(ctx, "db.read", table, operation)
}

func (t *OtelTracer) dbTrace(ctx context.Context, kind, table, operation string) {
	defer recoverTrace(kind)

	_, span := StartSpan(
		ctx,
		t.tracerName,
		kind,
		attribute.String("db.table", table),
		attribute.String("db.operation", operation),
	)
	span.End()

	logger := LoggerFromContext(ctx, log.Logger)
	logger.Trace().
		Str("table", table).
		Str("operation", operation).
		Msg(kind)
}

// NoopTracer discards all trace emissions. Used when tracing is
// disabled; registrar and meta-tool logic is unaffected.
type NoopTracer struct{}

func (NoopTracer) ToolCallStart(ctx context.Context, _ string) context.Context { return ctx }
func (NoopTracer) ToolCallEnd(context.Context, ExecutionTrace)                 {}
func (NoopTracer) DBWrite(context.Context, string, string)                     {}
func (NoopTracer) DBRead(context.Context, string, string)                      {}

func recoverTrace(kind string) {
	if rec := recover(); rec != nil {
		log.Warn().Str("trace", kind).Interface("panic", rec).Msg("Trace emission failed")
	}
}
