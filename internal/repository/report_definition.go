package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// ReportDefinitionRepo persists report definitions. All reads are scoped by
// tenant id; soft-deleted rows are invisible to every method except the
// ledger's referential needs.
type ReportDefinitionRepo struct {
	db *sql.DB
}

// NewReportDefinitionRepo creates a ReportDefinitionRepo over the write pool.
func NewReportDefinitionRepo(db *sql.DB) *ReportDefinitionRepo {
	return &ReportDefinitionRepo{db: db}
}

const reportColumns = `id, tenant_id, owner_id, name, description, spec, is_public,
	shared_with, execution_count, avg_execution_ms, last_run_at, is_active, created_at, updated_at`

func (r *ReportDefinitionRepo) Create(ctx context.Context, d *domain.ReportDefinition) (*domain.ReportDefinition, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.IsActive = true

	specJSON, err := json.Marshal(d.Spec)
	if err != nil {
		return nil, fmt.Errorf("marshal report spec: %w", err)
	}
	sharedJSON, err := marshalShared(d.SharedWith)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO report_definitions
			(id, tenant_id, owner_id, name, description, spec, is_public, shared_with, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TenantID, d.OwnerID, d.Name, d.Description, string(specJSON),
		boolToInt(d.IsPublic), string(sharedJSON), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return d, nil
}

func (r *ReportDefinitionRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.ReportDefinition, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM report_definitions
		WHERE tenant_id = ? AND id = ? AND is_active = 1`,
		tenantID, id)
	return scanDefinition(row)
}

func (r *ReportDefinitionRepo) ListVisible(ctx context.Context, tenantID, userID string, filter domain.ReportListFilter) ([]domain.ReportDefinition, int64, error) {
	where := `
		tenant_id = ? AND is_active = 1
		AND (owner_id = ? OR is_public = 1
			OR EXISTS (SELECT 1 FROM json_each(shared_with) WHERE json_each.value = ?))`
	args := []any{tenantID, userID, userID}

	if filter.Search != "" {
		where += ` AND name LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM report_definitions WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, mapDBError(err)
	}

	listArgs := append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM report_definitions
		WHERE `+where+`
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.ReportDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err)
	}
	return out, total, nil
}

func (r *ReportDefinitionRepo) Update(ctx context.Context, d *domain.ReportDefinition) error {
	specJSON, err := json.Marshal(d.Spec)
	if err != nil {
		return fmt.Errorf("marshal report spec: %w", err)
	}
	sharedJSON, err := marshalShared(d.SharedWith)
	if err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE report_definitions
		SET name = ?, description = ?, spec = ?, is_public = ?, shared_with = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND is_active = 1`,
		d.Name, d.Description, string(specJSON), boolToInt(d.IsPublic), string(sharedJSON),
		d.UpdatedAt, d.TenantID, d.ID)
	if err != nil {
		return mapDBError(err)
	}
	return requireRow(res, d.ID)
}

// SoftDelete marks the definition inactive. The row stays so execution
// history keeps a valid reference.
func (r *ReportDefinitionRepo) SoftDelete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE report_definitions
		SET is_active = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND is_active = 1`,
		time.Now().UTC(), tenantID, id)
	if err != nil {
		return mapDBError(err)
	}
	return requireRow(res, id)
}

// RecordSuccess folds one successful execution into the running statistics.
// The incremental mean is computed in a single UPDATE so concurrent
// executions cannot lose increments:
// new_avg = (old_avg*old_count + duration) / (old_count + 1).
func (r *ReportDefinitionRepo) RecordSuccess(ctx context.Context, tenantID, id string, durationMs int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE report_definitions
		SET avg_execution_ms = (avg_execution_ms * execution_count + ?) / (execution_count + 1),
			execution_count = execution_count + 1,
			last_run_at = ?
		WHERE tenant_id = ? AND id = ? AND is_active = 1`,
		float64(durationMs), time.Now().UTC(), tenantID, id)
	if err != nil {
		return mapDBError(err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("report %q not found", id)
	}
	return nil
}

func marshalShared(sharedWith []string) ([]byte, error) {
	if sharedWith == nil {
		sharedWith = []string{}
	}
	out, err := json.Marshal(sharedWith)
	if err != nil {
		return nil, fmt.Errorf("marshal shared_with: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*domain.ReportDefinition, error) {
	var (
		d          domain.ReportDefinition
		specJSON   string
		sharedJSON string
		isPublic   int64
		isActive   int64
		lastRunAt  sql.NullTime
	)
	err := row.Scan(&d.ID, &d.TenantID, &d.OwnerID, &d.Name, &d.Description, &specJSON,
		&isPublic, &sharedJSON, &d.ExecutionCount, &d.AvgExecutionMs, &lastRunAt,
		&isActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}

	if err := json.Unmarshal([]byte(specJSON), &d.Spec); err != nil {
		return nil, fmt.Errorf("unmarshal report spec: %w", err)
	}
	if err := json.Unmarshal([]byte(sharedJSON), &d.SharedWith); err != nil {
		return nil, fmt.Errorf("unmarshal shared_with: %w", err)
	}
	d.IsPublic = isPublic != 0
	d.IsActive = isActive != 0
	if lastRunAt.Valid {
		t := lastRunAt.Time
		d.LastRunAt = &t
	}
	return &d, nil
}
