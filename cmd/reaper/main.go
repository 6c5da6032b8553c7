// The reaper runs the scheduled sweeps on an interval: overdue scheduled
// appointments become missed, and yesterday's slots are archived. It runs
// once at startup, then on every tick until terminated.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/curaflow/curaflow/config"
	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/repository/postgres"
	"github.com/curaflow/curaflow/internal/service"
	"github.com/curaflow/curaflow/pkg/database"
	"github.com/curaflow/curaflow/pkg/logger"
	"github.com/curaflow/curaflow/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	m := metrics.NewCollector("curaflow_reaper")
	changeLog := service.NewChangeLogService(postgres.NewChangeLogRepository(db), log, m)
	defer changeLog.Shutdown()

	reaper := service.NewReaperService(
		postgres.NewAppointmentRepository(db),
		postgres.NewSlotRepository(db),
		changeLog,
		domain.SystemClock(),
		m,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("reaper starting", zap.Duration("interval", cfg.Scheduling.ReaperInterval))
	runOnce(ctx, reaper, cfg.Scheduling.ReaperRunTimeout, log)

	ticker := time.NewTicker(cfg.Scheduling.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reaper stopping")
			return
		case <-ticker.C:
			runOnce(ctx, reaper, cfg.Scheduling.ReaperRunTimeout, log)
		}
	}
}

func runOnce(ctx context.Context, reaper *service.ReaperService, timeout time.Duration, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := reaper.SweepMissed(runCtx); err != nil {
		log.Error("missed sweep failed", zap.Error(err))
	}
	if _, err := reaper.SweepExpiredSlots(runCtx); err != nil {
		log.Error("expired slot sweep failed", zap.Error(err))
	}
}
