package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/config"
	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/domain/visit"
	v1 "github.com/curaflow/curaflow/internal/handler/v1"
	"github.com/curaflow/curaflow/internal/repository/postgres"
	"github.com/curaflow/curaflow/internal/service"
	"github.com/curaflow/curaflow/pkg/database"
	"github.com/curaflow/curaflow/pkg/locker"
	"github.com/curaflow/curaflow/pkg/logger"
	"github.com/curaflow/curaflow/pkg/metrics"
	"github.com/curaflow/curaflow/pkg/sequence"
	"github.com/curaflow/curaflow/pkg/tracer"
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

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Tracing.Enabled {
		tp, err := tracer.Init(cfg.Tracing)
		if err != nil {
			log.Fatal("failed to init tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := sequence.Seed(db); err != nil {
		log.Fatal("failed to seed sequences", zap.Error(err))
	}

	rdb, err := locker.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	m := metrics.NewCollector("curaflow")
	clock := domain.SystemClock()
	seq := sequence.NewGenerator(db)
	locks := locker.NewRedisLocker(rdb, cfg.Redis.LockTTL)

	blockRepo := postgres.NewBlockRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	apptRepo := postgres.NewAppointmentRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	providerRepo := postgres.NewProviderRepository(db)

	changeLog := service.NewChangeLogService(postgres.NewChangeLogRepository(db), log, m)
	defer changeLog.Shutdown()

	visitSvc := service.NewVisitService(visitRepo, visit.DefaultRegistry(), changeLog, seq, clock, log)
	blockSvc := service.NewBlockService(blockRepo, slotRepo, providerRepo, apptRepo, changeLog, seq, clock, m, log)
	bookingSvc := service.NewBookingService(apptRepo, slotRepo, patientRepo, providerRepo, visitSvc, changeLog, locks, seq, clock, m, log)
	rescheduleSvc := service.NewRescheduleService(apptRepo, slotRepo, changeLog, clock, m, log)
	reaperSvc := service.NewReaperService(apptRepo, slotRepo, changeLog, clock, m, log)

	router := v1.NewRouter(v1.RouterDeps{
		Blocks:    v1.NewBlockHandler(blockSvc),
		Bookings:  v1.NewBookingHandler(bookingSvc, rescheduleSvc),
		Providers: v1.NewProviderHandler(bookingSvc, providerRepo),
		Visits:    v1.NewVisitHandler(visitSvc),
		Sweeps:    v1.NewSweepHandler(reaperSvc),
		Metrics:   m,
		Log:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
