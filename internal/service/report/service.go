// Package report implements the report definition store: CRUD with
// ownership and sharing rules, the execute pipeline (compile, gate, engine),
// and the execution-history bookkeeping around it.
package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/Mahaan-Amr/servaan-sub004/internal/catalog"
	"github.com/Mahaan-Amr/servaan-sub004/internal/compiler"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
	"github.com/Mahaan-Amr/servaan-sub004/internal/engine"
	"github.com/Mahaan-Amr/servaan-sub004/internal/security"
)

// Service wires the compiler, gate, and engine behind the persisted
// definition store. Request-scoped and stateless between calls.
type Service struct {
	defs         domain.ReportRepository
	ledger       domain.ExecutionRepository
	catalog      *catalog.Catalog
	compiler     *compiler.Compiler
	gate         *security.Gate
	engine       *engine.Engine
	exporter     domain.Exporter
	logger       *slog.Logger
	queryTimeout time.Duration
	dashboard    *DashboardService
}

// NewService creates the report service. exporter may be nil when the export
// surface is disabled.
func NewService(
	defs domain.ReportRepository,
	ledger domain.ExecutionRepository,
	cat *catalog.Catalog,
	comp *compiler.Compiler,
	gate *security.Gate,
	eng *engine.Engine,
	exporter domain.Exporter,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		defs:     defs,
		ledger:   ledger,
		catalog:  cat,
		compiler: comp,
		gate:     gate,
		engine:   eng,
		exporter: exporter,
		logger:   logger.With("component", "report-service"),
	}
}

// SetQueryTimeout sets the service-wide execution deadline applied when a
// call does not bound itself. Values <= 0 keep DefaultTimeout.
func (s *Service) SetQueryTimeout(d time.Duration) {
	if d > 0 {
		s.queryTimeout = d
	}
}

// BindDashboard connects the dashboard so its cached popular-reports
// aggregate is dropped after each successful execution.
func (s *Service) BindDashboard(d *DashboardService) {
	s.dashboard = d
}

// FieldInfo is the discovery projection of one catalog entry.
type FieldInfo struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Kind         string   `json:"kind"`
	Relation     string   `json:"relation"`
	Derived      bool     `json:"derived"`
	Filterable   bool     `json:"filterable"`
	Aggregations []string `json:"aggregations"`
}

// ListFields returns the available-fields projection of the catalog.
func (s *Service) ListFields() []FieldInfo {
	return lo.Map(s.catalog.ListAll(), func(f catalog.Field, _ int) FieldInfo {
		return FieldInfo{
			ID:         f.ID,
			Label:      f.Label,
			Kind:       string(f.Kind),
			Relation:   string(f.Relation),
			Derived:    f.Derived(),
			Filterable: !f.Derived(),
			Aggregations: lo.Map(f.Aggregations, func(a domain.Aggregation, _ int) string {
				return string(a)
			}),
		}
	})
}

// CreateInput carries the caller-editable parts of a definition.
type CreateInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Spec        domain.ReportSpec `json:"spec"`
	IsPublic    bool              `json:"is_public"`
	SharedWith  []string          `json:"shared_with"`
}

// Create persists a new definition owned by the caller. The tenant comes
// from the identity, never from the payload.
func (s *Service) Create(ctx context.Context, id domain.Identity, in CreateInput) (*domain.ReportDefinition, error) {
	if err := s.requireTenant(id); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, domain.ErrValidation("report name is required")
	}
	if err := s.checkSpec(in.Spec); err != nil {
		return nil, err
	}

	def := &domain.ReportDefinition{
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     id.UserID,
		TenantID:    id.TenantID,
		Spec:        in.Spec,
		IsPublic:    in.IsPublic,
		SharedWith:  lo.Uniq(in.SharedWith),
	}
	return s.defs.Create(ctx, def)
}

// Get loads a definition the caller may see. Invisible and absent are
// indistinguishable.
func (s *Service) Get(ctx context.Context, id domain.Identity, reportID string) (*domain.ReportDefinition, error) {
	if err := s.requireTenant(id); err != nil {
		return nil, err
	}
	return s.loadVisible(ctx, id, reportID)
}

// List returns definitions visible to the caller.
func (s *Service) List(ctx context.Context, id domain.Identity, filter domain.ReportListFilter) ([]domain.ReportDefinition, int64, error) {
	if err := s.requireTenant(id); err != nil {
		return nil, 0, err
	}
	return s.defs.ListVisible(ctx, id.TenantID, id.UserID, filter)
}

// Update replaces the caller-editable parts of a definition. Owner-only:
// callers who can see but not own the report get the same answer as callers
// who cannot see it at all.
func (s *Service) Update(ctx context.Context, id domain.Identity, reportID string, in CreateInput) (*domain.ReportDefinition, error) {
	if err := s.requireTenant(id); err != nil {
		return nil, err
	}
	def, err := s.loadOwned(ctx, id, reportID)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, domain.ErrValidation("report name is required")
	}
	if err := s.checkSpec(in.Spec); err != nil {
		return nil, err
	}

	def.Name = in.Name
	def.Description = in.Description
	def.Spec = in.Spec
	def.IsPublic = in.IsPublic
	def.SharedWith = lo.Uniq(in.SharedWith)
	if err := s.defs.Update(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// Delete soft-deletes an owned definition. History rows stay.
func (s *Service) Delete(ctx context.Context, id domain.Identity, reportID string) error {
	if err := s.requireTenant(id); err != nil {
		return err
	}
	if _, err := s.loadOwned(ctx, id, reportID); err != nil {
		return err
	}
	return s.defs.SoftDelete(ctx, id.TenantID, reportID)
}

// Share replaces the share list and public flag of an owned definition.
func (s *Service) Share(ctx context.Context, id domain.Identity, reportID string, sharedWith []string, isPublic bool) (*domain.ReportDefinition, error) {
	if err := s.requireTenant(id); err != nil {
		return nil, err
	}
	def, err := s.loadOwned(ctx, id, reportID)
	if err != nil {
		return nil, err
	}

	def.SharedWith = lo.Uniq(sharedWith)
	def.IsPublic = isPublic
	if err := s.defs.Update(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// History lists the execution ledger for one visible report.
func (s *Service) History(ctx context.Context, id domain.Identity, reportID string, page domain.PageRequest) ([]domain.ExecutionRecord, int64, error) {
	if err := s.requireTenant(id); err != nil {
		return nil, 0, err
	}
	if reportID != domain.AdhocReportID {
		if _, err := s.loadVisible(ctx, id, reportID); err != nil {
			return nil, 0, err
		}
	}
	return s.ledger.List(ctx, id.TenantID, domain.ExecutionFilter{
		ReportID: &reportID,
		Page:     page,
	})
}

func (s *Service) requireTenant(id domain.Identity) error {
	if !id.Valid() {
		s.logger.Warn("security event: report operation without tenant context", "user", id.UserID)
		return domain.ErrSecurityViolation("tenant context is required")
	}
	return nil
}

func (s *Service) checkSpec(spec domain.ReportSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	// Resolve every referenced field now so a definition that can never
	// compile is rejected at authoring time, not at first run.
	for _, col := range spec.Columns {
		if _, err := s.catalog.Lookup(col.FieldID); err != nil {
			return domain.ErrValidation("unknown report field %q", col.FieldID)
		}
	}
	for _, f := range spec.Filters {
		if _, err := s.catalog.Lookup(f.FieldID); err != nil {
			return domain.ErrValidation("filter references unknown field %q", f.FieldID)
		}
	}
	for _, srt := range spec.Sort {
		if _, err := s.catalog.Lookup(srt.FieldID); err != nil {
			return domain.ErrValidation("sort references unknown field %q", srt.FieldID)
		}
	}
	return nil
}

func (s *Service) loadVisible(ctx context.Context, id domain.Identity, reportID string) (*domain.ReportDefinition, error) {
	def, err := s.defs.GetByID(ctx, id.TenantID, reportID)
	if err != nil {
		return nil, err
	}
	if !def.VisibleTo(id.UserID) {
		// Indistinguishable from absence, to avoid existence leakage.
		return nil, domain.ErrNotFound("report %q not found", reportID)
	}
	return def, nil
}

func (s *Service) loadOwned(ctx context.Context, id domain.Identity, reportID string) (*domain.ReportDefinition, error) {
	def, err := s.loadVisible(ctx, id, reportID)
	if err != nil {
		return nil, err
	}
	if def.OwnerID != id.UserID {
		return nil, domain.ErrAccessDenied("report %q is not owned by the caller", reportID)
	}
	return def, nil
}
