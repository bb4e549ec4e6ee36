package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/vendor-booking/internal/api"
	"github.com/hackgods/vendor-booking/internal/availability"
	"github.com/hackgods/vendor-booking/internal/booking"
	"github.com/hackgods/vendor-booking/internal/config"
	"github.com/hackgods/vendor-booking/internal/db"
	"github.com/hackgods/vendor-booking/internal/logger"
	"github.com/hackgods/vendor-booking/internal/notification"
	redisclient "github.com/hackgods/vendor-booking/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: "api-server"})
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

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

	if cfg.AutoMigrate {
		if err := db.Migrate(rootCtx, pgPool); err != nil {
			log.Fatal().Err(err).Msg("migration error")
		}
	}

	// Connect Redis
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

	queue := asynq.NewClient(redisclient.AsynqOpt(redisOpts))
	defer func() {
		if err := queue.Close(); err != nil {
			log.Error().Err(err).Msg("error closing task queue client")
		}
	}()

	windows := availability.NewPgRepository(pgPool)
	checker := availability.NewChecker(windows, availability.WithOvernightContainment(cfg.AllowOvernightContainment))
	svc := booking.NewService(
		booking.NewPgStore(pgPool),
		windows,
		checker,
		redisclient.NewRedisVendorDayLocker(rdb, cfg.LockTTL),
		notification.NewAsynqDispatcher(queue, cfg.NotificationQueue),
	)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Postgres: pgPool,
		Redis:    api.RedisPinger(rdb),
		Env:      cfg.Env,
		Version:  cfg.Version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down api-server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("api-server stopped with error")
		return
	}
	log.Info().Msg("api-server stopped")
}
