// The completion worker is the external caller that moves scheduled
// appointments past their end time to completed. The booking core itself
// runs no timers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/careflow/appointment-booking/internal/appointment"
	"github.com/careflow/appointment-booking/internal/availability"
	"github.com/careflow/appointment-booking/internal/booking"
	"github.com/careflow/appointment-booking/internal/config"
	"github.com/careflow/appointment-booking/internal/db"
	"github.com/careflow/appointment-booking/internal/logger"
	"github.com/careflow/appointment-booking/internal/metrics"
	redisclient "github.com/careflow/appointment-booking/internal/redis"
	"github.com/careflow/appointment-booking/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("completion-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	sched := schedule.NewPgProvider(pgPool)
	engine := availability.NewEngine(repo, sched)
	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL, cfg.LockRetryDelay)
	collector := metrics.NewCollector("appointment_booking_worker")
	svc := booking.NewService(repo, engine, locker, booking.SystemClock(), cfg, log, collector)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping completion worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CompleteElapsed(runCtx)
	if err != nil {
		log.Error("completion run error", zap.Error(err))
		return
	}
	log.Info("completion run complete",
		zap.Int("completed", n),
		zap.Duration("took", time.Since(start)),
	)
}
