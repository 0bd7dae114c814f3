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

	"github.com/hibiken/asynq"

	"github.com/quickbill/quickbill/internal/app"
	"github.com/quickbill/quickbill/internal/export"
	"github.com/quickbill/quickbill/internal/invoicing"
	"github.com/quickbill/quickbill/internal/observability"
	"github.com/quickbill/quickbill/internal/platform/cache"
	"github.com/quickbill/quickbill/internal/pricing"
	"github.com/quickbill/quickbill/internal/shared"
	"github.com/quickbill/quickbill/internal/view"
	"github.com/quickbill/quickbill/jobs"
	"github.com/quickbill/quickbill/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	store, closeStore, err := app.NewStore(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Error("open record store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	exporter, gotenberg := app.NewExporter(cfg, templates)
	exports := export.NewService(cfg.Backend(), exporter, metrics, logger)

	devices := shared.NewDeviceManager(cfg.DeviceCookie, cfg.DeviceTTL, cfg.IsProduction())
	profile := invoicing.NewProfile(store)
	invoicingHandler := invoicing.NewHandler(logger, profile, templates, exports, cfg.EntitlementTokenHash)
	if cfg.EntitlementTokenHash == "" {
		logger.Warn("ENTITLEMENT_TOKEN_HASH not set, entitlement callback disabled")
	}

	var locator pricing.Locator
	if cfg.GeoIPURL != "" {
		locator = pricing.NewGeoIPClient(cfg.GeoIPURL, cfg.GeoIPTimeout)
	}
	pricingHandler := pricing.NewHandler(pricing.NewDetector(store, locator, cfg.GeoIPTimeout, logger))

	samples := report.NewSamples(exports, redisClient, cfg.SampleCacheTTL, string(cfg.Backend()), logger)
	reportHandler := report.NewHandler(gotenberg, samples, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	if _, err := jobClient.EnqueueSamplesWarm(ctx, "startup"); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Warn("enqueue samples warm-up", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		Devices:          devices,
		InvoicingHandler: invoicingHandler,
		PricingHandler:   pricingHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("pdf_backend", string(cfg.Backend())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
