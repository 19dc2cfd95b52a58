// Package app provides application-level wiring and dependency injection
// for the report server.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Mahaan-Amr/servaan-sub004/internal/api"
	"github.com/Mahaan-Amr/servaan-sub004/internal/cache"
	"github.com/Mahaan-Amr/servaan-sub004/internal/catalog"
	"github.com/Mahaan-Amr/servaan-sub004/internal/compiler"
	"github.com/Mahaan-Amr/servaan-sub004/internal/config"
	"github.com/Mahaan-Amr/servaan-sub004/internal/engine"
	"github.com/Mahaan-Amr/servaan-sub004/internal/export"
	"github.com/Mahaan-Amr/servaan-sub004/internal/observability"
	"github.com/Mahaan-Amr/servaan-sub004/internal/repository"
	"github.com/Mahaan-Amr/servaan-sub004/internal/security"
	"github.com/Mahaan-Amr/servaan-sub004/internal/service/report"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Reports   *report.Service
	Dashboard *report.DashboardService
	Monitor   *observability.Monitor
	Retention *Retention
	handler   *api.Handler
}

// New wires catalog, compiler, gate, engine, repositories, and services from
// the provided deps.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg

	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load field catalog: %w", err)
	}

	// Writes go through the single-connection pool; report queries read.
	defRepo := repository.NewReportDefinitionRepo(deps.WriteDB)
	ledgerRepo := repository.NewExecutionRecordRepo(deps.WriteDB)

	monitor := observability.NewMonitor()
	comp := compiler.New(cat)
	gate := security.NewGate(deps.Logger)

	eng := engine.New(deps.ReadDB, monitor, deps.Logger)
	eng.SetMaxRows(cfg.MaxRows)

	exporter, err := export.NewFileExporter(cfg.ExportDir)
	if err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}

	tenantCache := cache.New(cfg.CacheTTL, monitor)

	reports := report.NewService(defRepo, ledgerRepo, cat, comp, gate, eng, exporter, deps.Logger)
	reports.SetQueryTimeout(cfg.QueryTimeout)

	dashboard := report.NewDashboardService(ledgerRepo, tenantCache)
	reports.BindDashboard(dashboard)

	retention := NewRetention(ledgerRepo, cfg.RetentionSchedule, cfg.RetentionDays, deps.Logger)

	return &App{
		Reports:   reports,
		Dashboard: dashboard,
		Monitor:   monitor,
		Retention: retention,
		handler:   api.NewHandler(reports, dashboard, deps.Logger),
	}, nil
}

// Router assembles the HTTP surface with the configured middleware chain.
func (a *App) Router(cfg *config.Config) http.Handler {
	return a.handler.Routes(api.RouterConfig{
		JWTSecret:          []byte(cfg.JWTSecret),
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
}
