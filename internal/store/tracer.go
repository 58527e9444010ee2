package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type traceStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// SlowQueryTracer logs statements that take longer than a threshold, and
// every failed statement at debug level.
type SlowQueryTracer struct {
	log       *zap.Logger
	threshold time.Duration
	now       func() time.Time
}

// NewSlowQueryTracer returns a pgx.QueryTracer bound to log.
func NewSlowQueryTracer(log *zap.Logger, threshold time.Duration) *SlowQueryTracer {
	if log == nil {
		log = zap.NewNop()
	}
	return &SlowQueryTracer{log: log, threshold: threshold, now: time.Now}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceStartKey{}, queryStart{sql: data.SQL, at: t.now()})
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(traceStartKey{}).(queryStart)
	if !ok {
		return
	}
	took := t.now().Sub(start.at)
	switch {
	case data.Err != nil:
		t.log.Debug("query failed",
			zap.String("sql", start.sql),
			zap.Duration("took", took),
			zap.Error(data.Err),
		)
	case took >= t.threshold:
		t.log.Warn("slow query",
			zap.String("sql", start.sql),
			zap.Duration("took", took),
			zap.Int64("rows", data.CommandTag.RowsAffected()),
		)
	}
}
