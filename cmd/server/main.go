package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/application/services"
	"github.com/ViniciusGavioli/arthemi-booking/internal/config"
	"github.com/ViniciusGavioli/arthemi-booking/internal/infrastructure/gateway"
	"github.com/ViniciusGavioli/arthemi-booking/internal/infrastructure/notification"
	"github.com/ViniciusGavioli/arthemi-booking/internal/infrastructure/persistence/postgres"
	"github.com/ViniciusGavioli/arthemi-booking/internal/interfaces/rest/handlers"
	"github.com/ViniciusGavioli/arthemi-booking/internal/interfaces/rest/middleware"
	"github.com/ViniciusGavioli/arthemi-booking/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting booking service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := postgres.NewStore(db, cfg.Booking.CleanupBuffer)
	audit := postgres.NewAuditRepository(db)

	gatewayClient := gateway.NewGatewayClient(cfg.Gateway)
	retryGateway := gateway.NewRetryGatewayClient(gatewayClient, cfg.Retry)

	var notifier application.NotificationSender
	if cfg.Notification.AMQPURL != "" {
		amqpSender, err := notification.NewAMQPSender(cfg.Notification.AMQPURL, cfg.Notification.Exchange)
		if err != nil {
			logger.Error("failed to connect to message broker", "error", err)
			os.Exit(1)
		}
		defer amqpSender.Close()
		notifier = amqpSender
	} else {
		notifier = notification.NewLogSender(logger)
	}

	orchestrator := services.NewPaymentOrchestrator(store, retryGateway, logger)
	bookingService := services.NewBookingService(store, orchestrator, notifier, audit, services.BookingConfig{
		CleanupBuffer: cfg.Booking.CleanupBuffer,
		PendingTTL:    cfg.Booking.PendingTTL,
		MinimumCharge: cfg.Booking.MinimumCharge,
	}, logger)
	cancelService := services.NewCancelService(store, orchestrator, audit, logger)
	webhookService := services.NewWebhookService(store, retryGateway, notifier, audit, logger)
	cleanupService := services.NewCleanupService(store, orchestrator, audit, services.CleanupConfig{
		FallbackCeiling: cfg.Cleanup.FallbackCeiling,
		BatchSize:       cfg.Cleanup.BatchSize,
	}, logger)

	h := handlers.NewHandlers(
		bookingService,
		cancelService,
		webhookService,
		cleanupService,
		cfg.Cron.Secret,
		logger,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	handler := http.Handler(mux)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)
	handler = middleware.RequestID()(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	expiryWorker := worker.NewExpiryWorker(cleanupService, cfg.Worker.Interval, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go expiryWorker.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
