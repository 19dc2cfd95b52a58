// Package engine binds compiled report queries to the storage collaborator,
// executes them, and classifies the outcome.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Mahaan-Amr/servaan-sub004/internal/compiler"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// DefaultMaxRows bounds how many rows a single execution materializes.
const DefaultMaxRows = 10000

// Result holds the materialized output of one execution.
type Result struct {
	Columns    []string
	Rows       []map[string]any
	RowCount   int64
	DurationMs int64
	Truncated  bool
}

// Engine executes compiled queries against the read pool. Reads are
// side-effect-free; the engine never issues writes.
type Engine struct {
	db      *sql.DB
	monitor domain.PerformanceMonitor
	logger  *slog.Logger
	maxRows int
}

// New creates an Engine over the given read pool. monitor may be nil.
func New(db *sql.DB, monitor domain.PerformanceMonitor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:      db,
		monitor: monitor,
		logger:  logger.With("component", "engine"),
		maxRows: DefaultMaxRows,
	}
}

// SetMaxRows overrides the per-execution row cap. Values <= 0 keep the default.
func (e *Engine) SetMaxRows(n int) {
	if n > 0 {
		e.maxRows = n
	}
}

// Execute runs a compiled query. Timing is recorded unconditionally and
// forwarded to the performance monitor even when execution fails. Storage
// errors are classified without leaking driver or connection detail.
func (e *Engine) Execute(ctx context.Context, q *compiler.CompiledQuery) (*Result, error) {
	start := time.Now()

	rows, err := e.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, e.fail(ctx, q, start, err)
	}
	defer rows.Close() //nolint:errcheck

	result, err := e.scan(rows, q)
	if err != nil {
		return nil, e.fail(ctx, q, start, err)
	}

	result.DurationMs = elapsedMs(start)
	e.observe(q.Fingerprint, result.DurationMs, domain.ExecSuccess)
	return result, nil
}

// elapsedMs measures an attempt in whole milliseconds. Sub-millisecond
// attempts round up to 1 so a measured duration is never mistaken for an
// attempt that recorded no timing.
func elapsedMs(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms == 0 {
		ms = 1
	}
	return ms
}

func (e *Engine) fail(ctx context.Context, q *compiler.CompiledQuery, start time.Time, err error) error {
	durationMs := elapsedMs(start)

	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		e.observe(q.Fingerprint, durationMs, domain.ExecTimeout)
		e.logger.Warn("report query timed out", "fingerprint", q.Fingerprint, "duration_ms", durationMs)
		terr := domain.ErrTimeout("report query exceeded the execution deadline")
		terr.DurationMs = durationMs
		return terr
	}

	e.observe(q.Fingerprint, durationMs, domain.ExecError)
	e.logger.Error("report query failed", "fingerprint", q.Fingerprint,
		"duration_ms", durationMs, "error", err)
	return &domain.ExecutionError{Message: classify(err), Cause: err, DurationMs: durationMs}
}

func (e *Engine) observe(fingerprint string, durationMs int64, status domain.ExecutionStatus) {
	if e.monitor != nil {
		e.monitor.ObserveQuery(fingerprint, durationMs, status)
	}
}

// classify maps a storage error to a generic, caller-safe message.
func classify(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "syntax") || strings.Contains(msg, "no such column") || strings.Contains(msg, "no such table"):
		return "report query was malformed"
	case strings.Contains(msg, "locked") || strings.Contains(msg, "busy") || strings.Contains(msg, "connection"):
		return "report storage is temporarily unavailable"
	default:
		return "report execution failed"
	}
}

// scan materializes rows as column-keyed records. Duplicate labels keep the
// last value, matching how callers address columns by label.
func (e *Engine) scan(rows *sql.Rows, q *compiler.CompiledQuery) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		if len(result.Rows) >= e.maxRows {
			result.Truncated = true
			break
		}

		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = vals[i]
			}
		}
		result.Rows = append(result.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = int64(len(result.Rows))
	return result, nil
}
