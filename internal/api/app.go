package api

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
	"storefront/internal/api/domain/order"
	"storefront/internal/api/handlers"
	"storefront/internal/api/live"
	"storefront/internal/api/notify"
	"storefront/pkg/health"
	"storefront/pkg/logger"

	"golang.org/x/sync/errgroup"
)

func Run(cfg config.Config) {
	logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("API service failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("API service stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	healthRegistry := health.NewRegistry()

	store, closeStore, err := openStore(cfg, healthRegistry)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := live.NewHub()
	defer hub.Close()

	sinks, err := notificationSinks(ctx, cfg, hub)
	if err != nil {
		return err
	}
	dispatcher := newDispatcher(cfg, sinks)

	orderService := order.NewOrderService(store, dispatcher)

	webhookHandler := handlers.NewWebhookHandler(orderService)
	engine := NewGinEngine()
	NewRouter(
		webhookHandler,
		handlers.NewOrderHandler(orderService),
		handlers.NewLiveHandler(orderService, hub),
		healthRegistry,
	).SetUp(engine)
	NewInternalRouter(webhookHandler).SetUp(engine)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return withDispatcher(ctx, dispatcher, func() error {
		return serve(ctx, cfg, server, hub, healthRegistry, orderService, len(sinks))
	})
}

// withDispatcher runs d for as long as serve runs and closes it only after
// serve has returned, so records committed while requests and consumers
// drain are still queued and delivered.
func withDispatcher(ctx context.Context, d *notify.Dispatcher, serve func() error) error {
	dispatchCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()

	dispatched := make(chan error, 1)
	go func() { dispatched <- d.Run(dispatchCtx) }()

	err := serve()
	stop()
	return errors.Join(err, <-dispatched)
}

func serve(
	ctx context.Context,
	cfg config.Config,
	server *http.Server,
	hub *live.Hub,
	healthRegistry *health.Registry,
	orderService *order.OrderService,
	sinkCount int,
) error {
	g, gctx := errgroup.WithContext(ctx)

	if cfg.WebhookMode == config.ModeKafka {
		healthRegistry.Register(health.NewKafkaChecker(cfg.KafkaBrokers))
		g.Go(func() error {
			return StartWorkers(gctx, cfg, orderService)
		})
	}

	g.Go(func() error {
		slog.Info("Starting API HTTP server",
			"port", cfg.Port,
			"webhook_mode", cfg.WebhookMode,
			"store", cfg.StoreDriver,
			"notify_sinks", sinkCount)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api - run - ListenAndServe: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down API service gracefully...")

		// live streams are hijacked connections; Shutdown does not wait for them
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api - run - Shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
