package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// ExecutionRecordRepo owns the append-only execution ledger. Rows are never
// updated after insert.
type ExecutionRecordRepo struct {
	db *sql.DB
}

// NewExecutionRecordRepo creates an ExecutionRecordRepo over the write pool.
func NewExecutionRecordRepo(db *sql.DB) *ExecutionRecordRepo {
	return &ExecutionRecordRepo{db: db}
}

func (r *ExecutionRecordRepo) Insert(ctx context.Context, rec *domain.ExecutionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ExecutedAt.IsZero() {
		rec.ExecutedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_executions
			(id, report_id, tenant_id, executed_by, executed_at, duration_ms, row_count, status, error_message, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ReportID, rec.TenantID, rec.ExecutedBy, rec.ExecutedAt,
		rec.DurationMs, rec.RowCount, string(rec.Status), rec.ErrorMessage, rec.Fingerprint)
	return mapDBError(err)
}

func (r *ExecutionRecordRepo) List(ctx context.Context, tenantID string, filter domain.ExecutionFilter) ([]domain.ExecutionRecord, int64, error) {
	where := `tenant_id = ?`
	args := []any{tenantID}

	if filter.ReportID != nil {
		where += ` AND report_id = ?`
		args = append(args, *filter.ReportID)
	}
	if filter.ExecutedBy != nil {
		where += ` AND executed_by = ?`
		args = append(args, *filter.ExecutedBy)
	}
	if filter.Status != nil {
		where += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.From != nil {
		where += ` AND executed_at >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where += ` AND executed_at <= ?`
		args = append(args, *filter.To)
	}

	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM report_executions WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, mapDBError(err)
	}

	listArgs := append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, report_id, tenant_id, executed_by, executed_at, duration_ms, row_count, status, error_message, fingerprint
		FROM report_executions
		WHERE `+where+`
		ORDER BY executed_at DESC, id
		LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.ExecutionRecord
	for rows.Next() {
		var (
			rec    domain.ExecutionRecord
			status string
			errMsg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ReportID, &rec.TenantID, &rec.ExecutedBy,
			&rec.ExecutedAt, &rec.DurationMs, &rec.RowCount, &status, &errMsg, &rec.Fingerprint); err != nil {
			return nil, 0, mapDBError(err)
		}
		rec.Status = domain.ExecutionStatus(status)
		if errMsg.Valid {
			msg := errMsg.String
			rec.ErrorMessage = &msg
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err)
	}
	return out, total, nil
}

// TopReports aggregates successful runs per report for the dashboard surface.
// Soft-deleted definitions stay in the aggregate; their history is part of
// the tenant's record.
func (r *ExecutionRecordRepo) TopReports(ctx context.Context, tenantID string, limit int) ([]domain.ReportRunStats, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.report_id, COALESCE(d.name, e.report_id), COUNT(*), AVG(e.duration_ms), MAX(e.executed_at)
		FROM report_executions e
		LEFT JOIN report_definitions d ON d.id = e.report_id
		WHERE e.tenant_id = ? AND e.status = 'success'
		GROUP BY e.report_id
		ORDER BY COUNT(*) DESC, e.report_id
		LIMIT ?`, tenantID, limit)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.ReportRunStats
	for rows.Next() {
		var (
			s       domain.ReportRunStats
			lastRun any
		)
		if err := rows.Scan(&s.ReportID, &s.ReportName, &s.RunCount, &s.AvgMs, &lastRun); err != nil {
			return nil, mapDBError(err)
		}
		s.LastRunAt = parseLedgerTime(lastRun)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}

// parseLedgerTime converts a MAX(executed_at) aggregate back into a time.
// Aggregates lose the column's declared type, so the driver may hand back a
// raw string instead of time.Time.
func parseLedgerTime(v any) *time.Time {
	switch val := v.(type) {
	case time.Time:
		return &val
	case string:
		return parseTimeString(val)
	case []byte:
		return parseTimeString(string(val))
	}
	return nil
}

func parseTimeString(s string) *time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// DeleteOlderThan prunes ledger rows past the retention horizon.
func (r *ExecutionRecordRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM report_executions WHERE executed_at < ?`, cutoff)
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.RowsAffected()
}
