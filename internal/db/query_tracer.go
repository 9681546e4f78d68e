package db

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

type querySpanContextKey struct{}

// queryTracer emits a Sentry span per query when a transaction is active.
type queryTracer struct{}

func newQueryTracer() *queryTracer {
	return &queryTracer{}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if sentry.SpanFromContext(ctx) == nil {
		return ctx
	}

	query := compactQuery(data.SQL)
	span := sentry.StartSpan(
		ctx,
		"db.query",
		sentry.WithDescription(query),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	span.SetData("db.system", "postgresql")

	if fields := strings.Fields(query); len(fields) > 0 {
		span.SetData("db.operation", strings.ToUpper(fields[0]))
	}

	return context.WithValue(span.Context(), querySpanContextKey{}, span)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, _ := ctx.Value(querySpanContextKey{}).(*sentry.Span)
	if span == nil {
		return
	}

	if data.Err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("db.error", data.Err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
		span.SetData("db.rows_affected", data.CommandTag.RowsAffected())
	}

	span.Finish()
}

// compactQuery collapses whitespace so multi-line SQL reads as one span
// description, truncated to keep span payloads small.
func compactQuery(query string) string {
	compacted := strings.Join(strings.Fields(query), " ")
	if compacted == "" {
		return "sql.query"
	}
	const maxLen = 512
	if len(compacted) > maxLen {
		return compacted[:maxLen]
	}
	return compacted
}
