package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mahaan-Amr/servaan-sub004/internal/app"
	"github.com/Mahaan-Amr/servaan-sub004/internal/config"
	internaldb "github.com/Mahaan-Amr/servaan-sub004/internal/db"
	"github.com/Mahaan-Amr/servaan-sub004/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB:  4-connection pool for concurrent report queries.
	writeDB, readDB, err := internaldb.OpenReportStore(cfg.DBPath, 4)
	if err != nil {
		return err
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	logger.Info("running migrations", "db", cfg.DBPath)
	if err := internaldb.Migrate(writeDB); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.IsProduction() {
		if err := app.Seed(ctx, writeDB); err != nil {
			logger.Warn("seed demo inventory failed", "error", err)
		}
	}

	a, err := app.New(app.Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})
	if err != nil {
		return err
	}

	if err := a.Retention.Start(ctx); err != nil {
		return err
	}
	defer a.Retention.Stop()

	apiServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.Router(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := observability.NewMetricsServer(cfg.MetricsAddr, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("report API listening", "addr", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return metricsServer.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		logger.Info("shutting down")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("api shutdown failed", "error", err)
		}
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
