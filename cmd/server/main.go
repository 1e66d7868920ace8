package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "receivables-analytics/internal/adapters/web"
	"receivables-analytics/internal/ai"
	"receivables-analytics/internal/app"
	"receivables-analytics/internal/config"
	"receivables-analytics/internal/core"
	"receivables-analytics/internal/db"
	"receivables-analytics/internal/logging"
	"receivables-analytics/internal/refresh"
	"receivables-analytics/internal/scheduler"
	"receivables-analytics/internal/store"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}
	defer pool.Close()

	st := store.New(pool)
	formatter := core.NewFormatter(cfg.CurrencySymbol)

	var locker refresh.TenantLocker
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		locker = refresh.NewRedisLocker(redislock.New(rdb), 10*time.Minute, logger)
		logger.WithField("addr", cfg.RedisAddress).Info("using redis refresh lock")
	}
	orch := refresh.New(refresh.FromStore(st), locker, formatter, logger)

	fleet := scheduler.NewFleet(st, orch, cfg.RefreshConcurrency, logger)
	sched := scheduler.New(logger)
	if err := sched.Add(fleet.Job(cfg.RefreshInterval)); err != nil {
		logger.WithError(err).Fatal("scheduler")
	}
	sched.Start(ctx)
	defer sched.Stop()

	var insights ai.InsightGenerator
	if cfg.OpenAIAPIKey != "" {
		insights = ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		logger.Warn("OPENAI_API_KEY is not set, insights will use fallback text")
	}

	svc := app.NewAppService(st, orch, insights, formatter, cfg.InsightTimeout, logger)
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.ServerPort).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}
