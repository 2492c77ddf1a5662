package db

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

type querySpanKey struct{}

// queryTracer reports each statement against order_records as a Sentry
// child span when the request already carries a transaction.
type queryTracer struct{}

func newQueryTracer() *queryTracer {
	return &queryTracer{}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if sentry.SpanFromContext(ctx) == nil {
		return ctx
	}

	sql := strings.Join(strings.Fields(data.SQL), " ")
	if sql == "" {
		sql = "sql.query"
	}
	const maxLen = 512
	if len(sql) > maxLen {
		sql = sql[:maxLen]
	}

	span := sentry.StartSpan(
		ctx,
		"db.query",
		sentry.WithDescription(sql),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	span.SetData("db.system", "postgresql")
	if fields := strings.Fields(sql); len(fields) > 0 {
		span.SetData("db.operation", strings.ToUpper(fields[0]))
	}

	return context.WithValue(span.Context(), querySpanKey{}, span)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, _ := ctx.Value(querySpanKey{}).(*sentry.Span)
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
