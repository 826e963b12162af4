package pg

import (
	"context"
	"strings"

	// Packages
	pgx "github.com/jackc/pgx/v5"
	attribute "go.opentelemetry.io/otel/attribute"
	codes "go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	trace "go.opentelemetry.io/otel/trace"
)

//////////////////////////////////////////////////////////////////////////////
// TYPES

// tracer implements pgx.QueryTracer. It calls an optional function after
// each query and optionally emits an OpenTelemetry span around it.
type tracer struct {
	TraceFn
	otel trace.Tracer
}

// TraceFn is called after a query with the SQL, the named arguments and any
// error returned by the server
type TraceFn func(ctx context.Context, sql string, args any, err error)

type traceKey struct{}

type traceData struct {
	span trace.Span
	sql  string
	args any
}

// Ensure interfaces are satisfied
var _ pgx.QueryTracer = (*tracer)(nil)

//////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// Bind this variable to name the span for a query, for example
	// conn.With(pg.TraceSpanNameArg, "pgjobs.claim")
	TraceSpanNameArg = "otelspan"

	defaultSpanName = "pg.query"
)

//////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (t *tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	td := &traceData{sql: data.SQL, args: traceArgs(data.Args)}
	if t.otel != nil {
		ctx, td.span = t.otel.Start(ctx, spanName(td.args),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemPostgreSQL,
				attribute.String("db.statement", data.SQL),
			),
		)
	}
	return context.WithValue(ctx, traceKey{}, td)
}

func (t *tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	td, ok := ctx.Value(traceKey{}).(*traceData)
	if !ok {
		return
	}
	if td.span != nil {
		if data.Err != nil {
			td.span.RecordError(data.Err)
			td.span.SetStatus(codes.Error, data.Err.Error())
		} else {
			td.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
		}
		td.span.End()
	}
	if t.TraceFn != nil {
		t.TraceFn(ctx, strings.TrimSpace(td.sql), td.args, data.Err)
	}
}

//////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func traceArgs(args []any) any {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	default:
		return args
	}
}

func spanName(args any) string {
	if named, ok := args.(pgx.NamedArgs); ok {
		if name, ok := named[TraceSpanNameArg].(string); ok && name != "" {
			return name
		}
	}
	return defaultSpanName
}
