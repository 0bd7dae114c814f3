package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/quickbill/quickbill/internal/app"
	"github.com/quickbill/quickbill/internal/export"
	"github.com/quickbill/quickbill/internal/platform/cache"
	"github.com/quickbill/quickbill/internal/view"
	"github.com/quickbill/quickbill/jobs"
	"github.com/quickbill/quickbill/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	exporter, _ := app.NewExporter(cfg, templates)
	exports := export.NewService(cfg.Backend(), exporter, nil, logger)
	samples := report.NewSamples(exports, redisClient, cfg.SampleCacheTTL, string(cfg.Backend()), logger)

	warmJob := jobs.NewSamplesWarmJob(samples, logger, nil)
	warmCron, err := jobs.SamplesWarmCron()
	if err != nil {
		logger.Error("build samples warm task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSamplesWarm, Handler: warmJob.Handle},
		},
		Cron: []jobs.CronRegistration{warmCron},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
