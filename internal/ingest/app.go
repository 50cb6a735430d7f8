// Package ingest is the webhook gateway: it validates provider deliveries and
// hands them to the API service over Kafka or HTTP.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/api/external/kafka"
	"storefront/internal/ingest/apiclient"
	"storefront/internal/ingest/handlers"
	"storefront/internal/ingest/webhook"
	"storefront/pkg/health"
	"storefront/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Run bootstraps and runs the Ingest service.
func Run(cfg config.IngestConfig) {
	logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Ingest service failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Ingest service stopped")
}

func run(ctx context.Context, cfg config.IngestConfig) error {
	healthRegistry := health.NewRegistry()

	processor, closeProcessor, err := newProcessor(cfg, healthRegistry)
	if err != nil {
		return err
	}
	defer closeProcessor()

	engine := api.NewGinEngine()
	NewRouter(handlers.NewWebhookHandler(processor), healthRegistry).SetUp(engine)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Ingest service started", "port", cfg.Port, "webhook_mode", cfg.WebhookMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ingest - run - ListenAndServe: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down Ingest service...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ingest - run - Shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newProcessor(cfg config.IngestConfig, registry *health.Registry) (webhook.Processor, func(), error) {
	switch cfg.WebhookMode {
	case config.ModeKafka:
		slog.Info("Initializing Kafka publisher", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaOrdersTopic)
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaOrdersTopic)
		registry.Register(health.NewKafkaChecker(cfg.KafkaBrokers))
		return webhook.NewAsyncProcessor(publisher), func() { _ = publisher.Close() }, nil
	case config.ModeHTTP:
		slog.Info("Forwarding webhooks to API", "base_url", cfg.APIBaseURL)
		client := apiclient.NewHTTPClient(apiclient.HTTPClientConfig{
			BaseURL:        cfg.APIBaseURL,
			Timeout:        cfg.APITimeout,
			RetryAttempts:  cfg.APIRetryAttempts,
			RetryBaseDelay: cfg.APIRetryBaseDelay,
			RetryMaxDelay:  cfg.APIRetryMaxDelay,
		})
		registry.Register(health.NewHTTPChecker("api", cfg.APIBaseURL+"/health/live"))
		return webhook.NewForwardProcessor(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("ingest - unsupported webhook mode %q", cfg.WebhookMode)
	}
}
