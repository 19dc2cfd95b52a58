package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
	"github.com/Mahaan-Amr/servaan-sub004/internal/service/report"
)

// ListFields returns the field catalog available to report authors.
func (h *Handler) ListFields(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"fields": h.reports.ListFields(),
	})
}

// CreateReport persists a new report definition owned by the caller.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var in report.CreateInput
	if !h.decode(w, r, &in) {
		return
	}

	def, err := h.reports.Create(r.Context(), identity(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, def)
}

// ListReports returns the definitions visible to the caller.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	filter := domain.ReportListFilter{
		Search: r.URL.Query().Get("search"),
		Page:   pageFromQuery(r),
	}

	defs, total, err := h.reports.List(r.Context(), identity(r), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"reports":         defs,
		"total":           total,
		"next_page_token": domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total),
	})
}

// GetReport returns one visible definition.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	def, err := h.reports.Get(r.Context(), identity(r), chi.URLParam(r, "reportID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, def)
}

// UpdateReport replaces the caller-editable parts of an owned definition.
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	var in report.CreateInput
	if !h.decode(w, r, &in) {
		return
	}

	def, err := h.reports.Update(r.Context(), identity(r), chi.URLParam(r, "reportID"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, def)
}

// DeleteReport soft-deletes an owned definition.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.Delete(r.Context(), identity(r), chi.URLParam(r, "reportID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type shareRequest struct {
	SharedWith []string `json:"shared_with"`
	IsPublic   bool     `json:"is_public"`
}

// ShareReport replaces the share list and public flag of an owned definition.
func (h *Handler) ShareReport(w http.ResponseWriter, r *http.Request) {
	var in shareRequest
	if !h.decode(w, r, &in) {
		return
	}

	def, err := h.reports.Share(r.Context(), identity(r), chi.URLParam(r, "reportID"), in.SharedWith, in.IsPublic)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, def)
}

// PopularReports returns the most-run reports for the caller's tenant.
func (h *Handler) PopularReports(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.PopularReports(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"reports": stats,
	})
}
