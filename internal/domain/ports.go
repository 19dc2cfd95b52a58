package domain

import (
	"context"
	"time"
)

// ReportRepository owns persisted report definitions.
type ReportRepository interface {
	Create(ctx context.Context, d *ReportDefinition) (*ReportDefinition, error)
	// GetByID returns an active definition regardless of visibility; the
	// service layer applies the visibility rule.
	GetByID(ctx context.Context, tenantID, id string) (*ReportDefinition, error)
	// ListVisible returns active definitions the user may see (owned, shared,
	// or public) within the tenant.
	ListVisible(ctx context.Context, tenantID, userID string, filter ReportListFilter) ([]ReportDefinition, int64, error)
	Update(ctx context.Context, d *ReportDefinition) error
	// SoftDelete marks a definition inactive; the row is never removed.
	SoftDelete(ctx context.Context, tenantID, id string) error
	// RecordSuccess applies the post-execution bookkeeping atomically:
	// execution_count+1 and the incremental mean update of avg_execution_ms.
	RecordSuccess(ctx context.Context, tenantID, id string, durationMs int64) error
}

// ExecutionRepository owns the append-only execution ledger.
type ExecutionRepository interface {
	Insert(ctx context.Context, r *ExecutionRecord) error
	List(ctx context.Context, tenantID string, filter ExecutionFilter) ([]ExecutionRecord, int64, error)
	// TopReports aggregates the ledger per report for dashboard use.
	TopReports(ctx context.Context, tenantID string, limit int) ([]ReportRunStats, error)
	// DeleteOlderThan prunes ledger rows past the retention horizon and
	// returns the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PerformanceMonitor receives timing per execution and hit/miss per cache
// probe. Fire-and-forget from the core's perspective.
type PerformanceMonitor interface {
	ObserveQuery(fingerprint string, durationMs int64, status ExecutionStatus)
	ObserveCache(key string, hit bool)
}

// ExportResult describes a rendered report file.
type ExportResult struct {
	FilePath string
	MimeType string
	Filename string
}

// Exporter renders already-materialized rows into a document format. The core
// performs no formatting itself.
type Exporter interface {
	Export(ctx context.Context, columns []string, rows []map[string]any, reportName string, format ExportFormat) (*ExportResult, error)
}
