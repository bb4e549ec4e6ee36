package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/hackgods/vendor-booking/internal/availability"
	"github.com/hackgods/vendor-booking/internal/booking"
	"github.com/hackgods/vendor-booking/internal/config"
	"github.com/hackgods/vendor-booking/internal/db"
	"github.com/hackgods/vendor-booking/internal/logger"
	"github.com/hackgods/vendor-booking/internal/notification"
	redisclient "github.com/hackgods/vendor-booking/internal/redis"
)

const lifecycleQueue = "lifecycle"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: "worker"})
	log.Info().
		Str("env", cfg.Env).
		Dur("lifecycle_interval", cfg.LifecycleInterval).
		Int("concurrency", cfg.WorkerConcurrency).
		Msg("worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	redisOpts := redisclient.Options{Addr: cfg.RedisAddr, Username: cfg.RedisUsername, Password: cfg.RedisPassword}
	rdb, err := redisclient.NewRedisClient(rootCtx, redisOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	queueOpt := redisclient.AsynqOpt(redisOpts)

	queue := asynq.NewClient(queueOpt)
	defer queue.Close()

	windows := availability.NewPgRepository(pgPool)
	svc := booking.NewService(
		booking.NewPgStore(pgPool),
		windows,
		availability.NewChecker(windows, availability.WithOvernightContainment(cfg.AllowOvernightContainment)),
		redisclient.NewRedisVendorDayLocker(rdb, cfg.LockTTL),
		notification.NewAsynqDispatcher(queue, cfg.NotificationQueue),
	)

	srv := asynq.NewServer(queueOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			cfg.NotificationQueue: 6,
			lifecycleQueue:        3,
			"default":             1,
		},
		Logger:          asynqLogger{},
		ShutdownTimeout: cfg.ShutdownTimeout,
	})

	mux := asynq.NewServeMux()
	mux.Handle(notification.TaskDeliver, notification.NewDeliveryHandler(notification.NewPgInbox(pgPool)))
	mux.Handle(booking.TaskCompleteElapsed, booking.NewCompleteElapsedHandler(svc))

	scheduler := asynq.NewScheduler(queueOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   asynqLogger{},
	})
	cronspec := "@every " + cfg.LifecycleInterval.String()
	if _, err := scheduler.Register(cronspec, booking.NewCompleteElapsedTask(),
		asynq.Queue(lifecycleQueue),
		asynq.MaxRetry(0),
		asynq.Unique(cfg.LifecycleInterval),
	); err != nil {
		log.Fatal().Err(err).Msg("register lifecycle sweep")
	}

	// Run once at startup
	runOnce(rootCtx, svc)

	if err := srv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("start task server")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("start scheduler")
	}

	<-rootCtx.Done()
	log.Info().Msg("shutdown signal received, stopping worker")

	scheduler.Shutdown()
	srv.Shutdown()
}

func runOnce(ctx context.Context, svc *booking.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CompleteElapsed(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("lifecycle run error")
		return
	}
	log.Info().Int("completed", n).Dur("took", time.Since(start)).Msg("lifecycle run complete")
}
