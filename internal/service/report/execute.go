package report

import (
	"context"
	"errors"
	"time"

	"github.com/Mahaan-Amr/servaan-sub004/internal/compiler"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// ExecuteOptions tune a single execution attempt.
type ExecuteOptions struct {
	// Timeout bounds the storage round-trip. Zero applies DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout is applied when the caller does not bound an execution.
const DefaultTimeout = 30 * time.Second

// ExecuteResult is what callers of the execute and preview surfaces receive.
type ExecuteResult struct {
	ReportID    string             `json:"report_id"`
	ReportName  string             `json:"report_name"`
	Columns     []string           `json:"columns"`
	Rows        []map[string]any   `json:"rows"`
	RowCount    int64              `json:"row_count"`
	DurationMs  int64              `json:"duration_ms"`
	Truncated   bool               `json:"truncated"`
	Warnings    []compiler.Warning `json:"warnings,omitempty"`
	Fingerprint string             `json:"fingerprint"`
}

// Execute runs a persisted report. A missing tenant is fatal before any
// storage round-trip. Every attempt that reaches the pipeline appends exactly
// one ledger record; only a success touches the definition's aggregates.
func (s *Service) Execute(ctx context.Context, id domain.Identity, reportID string, params domain.RuntimeParams, opts ExecuteOptions) (*ExecuteResult, error) {
	if err := s.requireTenant(id); err != nil {
		return nil, err
	}

	def, err := s.loadVisible(ctx, id, reportID)
	if err != nil {
		// Load failures happen before the attempt exists: no ledger record.
		return nil, err
	}

	res, err := s.runPipeline(ctx, id, def.ID, def.Spec, params, opts)
	if err != nil {
		return nil, err
	}
	res.ReportName = def.Name

	if err := s.defs.RecordSuccess(ctx, id.TenantID, def.ID, res.DurationMs); err != nil {
		// Bookkeeping failure does not invalidate the rows already produced.
		s.logger.Error("failed to record execution stats", "report_id", def.ID, "error", err)
	}
	return res, nil
}

// Preview compiles and runs an unsaved spec through the identical pipeline.
// Nothing is persisted except the ledger record, which carries the ad-hoc
// marker instead of a definition id.
func (s *Service) Preview(ctx context.Context, id domain.Identity, spec domain.ReportSpec, params domain.RuntimeParams, opts ExecuteOptions) (*ExecuteResult, error) {
	if err := s.requireTenant(id); err != nil {
		return nil, err
	}
	return s.runPipeline(ctx, id, domain.AdhocReportID, spec, params, opts)
}

// Export executes a report and renders the materialized rows to a file.
func (s *Service) Export(ctx context.Context, id domain.Identity, reportID string, params domain.RuntimeParams, format domain.ExportFormat, opts ExecuteOptions) (*domain.ExportResult, error) {
	if s.exporter == nil {
		return nil, domain.ErrValidation("export is not enabled")
	}
	if !format.Valid() {
		return nil, domain.ErrValidation("unknown export format %q", format)
	}

	res, err := s.Execute(ctx, id, reportID, params, opts)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, res.Columns, res.Rows, res.ReportName, format)
}

// runPipeline is the shared compile -> gate -> execute -> ledger path. The
// ledger write happens on every branch past compilation input validation, so
// one attempt always leaves one record.
func (s *Service) runPipeline(ctx context.Context, id domain.Identity, reportID string, spec domain.ReportSpec, params domain.RuntimeParams, opts ExecuteOptions) (*ExecuteResult, error) {
	compiled, err := s.compiler.Compile(spec, id, &params)
	if err != nil {
		s.appendRecord(ctx, id, reportID, "", 0, 0, statusFor(err), err)
		return nil, err
	}

	if err := s.gate.Validate(compiled); err != nil {
		s.appendRecord(ctx, id, reportID, compiled.Fingerprint, 0, 0, domain.ExecError, err)
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeoutFor(opts))
	defer cancel()

	engineRes, err := s.engine.Execute(execCtx, compiled)
	if err != nil {
		s.appendRecord(ctx, id, reportID, compiled.Fingerprint, durationFor(err), 0, statusFor(err), err)
		return nil, err
	}

	s.appendRecord(ctx, id, reportID, compiled.Fingerprint, engineRes.DurationMs, engineRes.RowCount, domain.ExecSuccess, nil)
	if s.dashboard != nil {
		s.dashboard.InvalidatePopular(id.TenantID)
	}

	if len(compiled.Warnings) > 0 {
		s.logger.Info("report compiled with warnings",
			"report_id", reportID,
			"request_id", domain.RequestIDFromContext(ctx),
			"warnings", len(compiled.Warnings))
	}

	return &ExecuteResult{
		ReportID:    reportID,
		Columns:     engineRes.Columns,
		Rows:        engineRes.Rows,
		RowCount:    engineRes.RowCount,
		DurationMs:  engineRes.DurationMs,
		Truncated:   engineRes.Truncated,
		Warnings:    compiled.Warnings,
		Fingerprint: compiled.Fingerprint,
	}, nil
}

// appendRecord writes one ledger row. Ledger failures are logged, not
// propagated: the attempt's primary outcome wins.
func (s *Service) appendRecord(ctx context.Context, id domain.Identity, reportID, fingerprint string, durationMs, rowCount int64, status domain.ExecutionStatus, execErr error) {
	rec := &domain.ExecutionRecord{
		ReportID:    reportID,
		TenantID:    id.TenantID,
		ExecutedBy:  id.UserID,
		ExecutedAt:  time.Now().UTC(),
		DurationMs:  durationMs,
		RowCount:    rowCount,
		Status:      status,
		Fingerprint: fingerprint,
	}
	if execErr != nil {
		msg := execErr.Error()
		rec.ErrorMessage = &msg
	}

	if err := s.ledger.Insert(ctx, rec); err != nil {
		s.logger.Error("failed to append execution record",
			"report_id", reportID,
			"request_id", domain.RequestIDFromContext(ctx),
			"status", status, "error", err)
	}
}

// timeoutFor resolves the effective execution deadline: per-call option,
// then the service-wide configured deadline, then DefaultTimeout.
func (s *Service) timeoutFor(opts ExecuteOptions) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if s.queryTimeout > 0 {
		return s.queryTimeout
	}
	return DefaultTimeout
}

// statusFor maps a pipeline error to its ledger status.
func statusFor(err error) domain.ExecutionStatus {
	var timeout *domain.TimeoutError
	if errors.As(err, &timeout) {
		return domain.ExecTimeout
	}
	return domain.ExecError
}

// durationFor recovers the measured attempt time from an engine error so a
// failed or timed-out attempt still records how long it ran.
func durationFor(err error) int64 {
	var timeout *domain.TimeoutError
	if errors.As(err, &timeout) {
		return timeout.DurationMs
	}
	var exec *domain.ExecutionError
	if errors.As(err, &exec) {
		return exec.DurationMs
	}
	return 0
}
