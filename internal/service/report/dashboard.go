package report

import (
	"context"

	"github.com/Mahaan-Amr/servaan-sub004/internal/cache"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

const (
	popularReportsKey   = "popular_reports"
	popularReportsLimit = 10
)

// DashboardService serves the read-mostly aggregates over the execution
// ledger. Results are cached per tenant since the dashboard is polled far
// more often than the ledger changes meaningfully.
type DashboardService struct {
	ledger domain.ExecutionRepository
	cache  *cache.TenantCache
}

// NewDashboardService creates the dashboard service. cache may be nil to
// bypass caching, e.g. in tests.
func NewDashboardService(ledger domain.ExecutionRepository, c *cache.TenantCache) *DashboardService {
	return &DashboardService{ledger: ledger, cache: c}
}

// PopularReports returns the most-run reports for the caller's tenant,
// ordered by run count.
func (d *DashboardService) PopularReports(ctx context.Context, id domain.Identity) ([]domain.ReportRunStats, error) {
	if !id.Valid() {
		return nil, domain.ErrSecurityViolation("tenant context is required")
	}

	load := func(ctx context.Context) (any, error) {
		return d.ledger.TopReports(ctx, id.TenantID, popularReportsLimit)
	}

	if d.cache == nil {
		stats, err := d.ledger.TopReports(ctx, id.TenantID, popularReportsLimit)
		return stats, err
	}

	v, err := d.cache.GetOrLoad(ctx, id.TenantID, popularReportsKey, load)
	if err != nil {
		return nil, err
	}
	stats, ok := v.([]domain.ReportRunStats)
	if !ok {
		return nil, &domain.ExecutionError{Message: "unexpected cache payload for popular reports"}
	}
	return stats, nil
}

// InvalidatePopular drops the cached dashboard aggregate for a tenant. The
// execute pipeline calls this after every successful run so the dashboard
// reflects new executions promptly.
func (d *DashboardService) InvalidatePopular(tenantID string) {
	if d.cache != nil {
		d.cache.Invalidate(tenantID, popularReportsKey)
	}
}
