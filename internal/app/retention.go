package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// Retention prunes execution-ledger rows past the configured horizon on a
// cron schedule. The ledger is append-only, so this is the only deletion
// path it has.
type Retention struct {
	ledger   domain.ExecutionRepository
	schedule string
	days     int
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewRetention creates the retention job. Start must be called to arm it.
func NewRetention(ledger domain.ExecutionRepository, schedule string, days int, logger *slog.Logger) *Retention {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retention{
		ledger:   ledger,
		schedule: schedule,
		days:     days,
		logger:   logger.With("component", "retention"),
	}
}

// Start arms the cron schedule. Returns an error for a malformed expression.
func (r *Retention) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() {
		if err := r.RunOnce(ctx); err != nil {
			r.logger.Error("ledger prune failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	r.cron = c
	r.logger.Info("retention job armed", "schedule", r.schedule, "days", r.days)
	return nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (r *Retention) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce prunes immediately. Also used by the CLI.
func (r *Retention) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -r.days)
	n, err := r.ledger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Info("pruned execution ledger", "removed", n, "cutoff", cutoff)
	}
	return nil
}
