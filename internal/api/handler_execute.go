package api

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
	"github.com/Mahaan-Amr/servaan-sub004/internal/service/report"
)

type executeRequest struct {
	Params domain.RuntimeParams `json:"params"`
}

type previewRequest struct {
	Spec   domain.ReportSpec    `json:"spec"`
	Params domain.RuntimeParams `json:"params"`
}

type exportRequest struct {
	Params domain.RuntimeParams `json:"params"`
	Format string               `json:"format"`
}

// ExecuteReport runs a persisted report and returns the materialized rows.
func (h *Handler) ExecuteReport(w http.ResponseWriter, r *http.Request) {
	var in executeRequest
	if r.ContentLength > 0 && !h.decode(w, r, &in) {
		return
	}

	res, err := h.reports.Execute(r.Context(), identity(r), chi.URLParam(r, "reportID"), in.Params, report.ExecuteOptions{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// PreviewReport runs an unsaved report spec without persisting a definition.
func (h *Handler) PreviewReport(w http.ResponseWriter, r *http.Request) {
	var in previewRequest
	if !h.decode(w, r, &in) {
		return
	}

	res, err := h.reports.Preview(r.Context(), identity(r), in.Spec, in.Params, report.ExecuteOptions{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// ReportHistory lists the execution ledger for one visible report.
func (h *Handler) ReportHistory(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	records, total, err := h.reports.History(r.Context(), identity(r), chi.URLParam(r, "reportID"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"executions":      historyToAPI(records),
		"total":           total,
		"next_page_token": domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}

// ExportReport executes a report and streams the rendered file back.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	var in exportRequest
	if !h.decode(w, r, &in) {
		return
	}
	format, err := domain.ParseExportFormat(in.Format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.reports.Export(r.Context(), identity(r), chi.URLParam(r, "reportID"), in.Params, format, report.ExecuteOptions{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	f, err := os.Open(res.FilePath) //nolint:gosec // path produced by the exporter, not the caller
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer f.Close() //nolint:errcheck

	w.Header().Set("Content-Type", res.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	http.ServeContent(w, r, res.Filename, time.Now(), f)
}

// executionToAPI flattens a ledger row for JSON. The nullable error message
// stays a pointer so successes omit it.
type executionResponse struct {
	ID           string    `json:"id"`
	ReportID     string    `json:"report_id"`
	ExecutedBy   string    `json:"executed_by"`
	ExecutedAt   time.Time `json:"executed_at"`
	DurationMs   int64     `json:"duration_ms"`
	RowCount     int64     `json:"row_count"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
}

func historyToAPI(records []domain.ExecutionRecord) []executionResponse {
	out := make([]executionResponse, len(records))
	for i, rec := range records {
		out[i] = executionResponse{
			ID:           rec.ID,
			ReportID:     rec.ReportID,
			ExecutedBy:   rec.ExecutedBy,
			ExecutedAt:   rec.ExecutedAt,
			DurationMs:   rec.DurationMs,
			RowCount:     rec.RowCount,
			Status:       string(rec.Status),
			ErrorMessage: rec.ErrorMessage,
			Fingerprint:  rec.Fingerprint,
		}
	}
	return out
}
