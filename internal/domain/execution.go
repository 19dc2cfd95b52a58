package domain

import "time"

// AdhocReportID marks ledger entries produced by preview executions that have
// no persisted definition behind them.
const AdhocReportID = "adhoc"

// ExecutionStatus classifies the outcome of one execution attempt.
type ExecutionStatus string

const (
	ExecSuccess ExecutionStatus = "success"
	ExecError   ExecutionStatus = "error"
	ExecTimeout ExecutionStatus = "timeout"
)

// ExecutionRecord is one row of the append-only execution ledger. Every
// attempt produces exactly one record, failures included. Never mutated
// after creation.
type ExecutionRecord struct {
	ID           string
	ReportID     string // definition id, or AdhocReportID
	TenantID     string
	ExecutedBy   string
	ExecutedAt   time.Time
	DurationMs   int64
	RowCount     int64
	Status       ExecutionStatus
	ErrorMessage *string
	Fingerprint  string
}

// ExecutionFilter holds filter parameters for listing the execution ledger.
type ExecutionFilter struct {
	ReportID   *string
	ExecutedBy *string
	Status     *ExecutionStatus
	From       *time.Time
	To         *time.Time
	Page       PageRequest
}

// ReportRunStats is a per-report aggregate over the ledger, used by the
// dashboard surface.
type ReportRunStats struct {
	ReportID   string     `json:"report_id"`
	ReportName string     `json:"report_name"`
	RunCount   int64      `json:"run_count"`
	AvgMs      float64    `json:"avg_ms"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
}
