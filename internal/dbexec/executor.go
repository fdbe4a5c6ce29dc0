// Package dbexec provides database query execution abstractions.
package dbexec

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// QueryExecutor abstracts SQL execution so callers can swap in instrumented
// or fake implementations.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries directly against the database.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

// QueryContext runs query on the underlying database handle.
func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

// LoggingExecutor logs every statement at debug level before delegating.
type LoggingExecutor struct {
	next   QueryExecutor
	logger *slog.Logger
}

// NewLoggingExecutor wraps next so that statements and their latency are logged.
func NewLoggingExecutor(next QueryExecutor, logger *slog.Logger) *LoggingExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExecutor{next: next, logger: logger}
}

// QueryContext delegates to the wrapped executor and logs the outcome at debug level.
func (e *LoggingExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := e.next.QueryContext(ctx, query, args...)
	attrs := []any{
		slog.String("sql", query),
		slog.Int("args", len(args)),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		e.logger.DebugContext(ctx, "query failed", append(attrs, slog.String("error", err.Error()))...)
		return nil, err
	}
	e.logger.DebugContext(ctx, "query executed", attrs...)
	return rows, nil
}
