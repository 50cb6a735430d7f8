package api

import (
	"context"
	"log/slog"

	"storefront/config"
	"storefront/internal/api/consumers"
	"storefront/internal/api/external/kafka"
	"storefront/internal/api/messaging"
)

// StartWorkers consumes the orders topic until ctx is cancelled. Failed
// messages are retried and then parked on the DLQ topic.
func StartWorkers(ctx context.Context, cfg config.Config, service consumers.WebhookProcessor) error {
	dlq := kafka.NewDLQPublisher(cfg.KafkaBrokers, cfg.KafkaOrdersDLQTopic)
	defer dlq.Close()

	controller := consumers.NewOrderMessageController(service)
	handler := messaging.WithMetrics(
		cfg.KafkaOrdersTopic,
		cfg.KafkaOrdersConsumerGroup,
		messaging.WithDLQ(
			messaging.WithRetry(controller.HandleMessage, messaging.DefaultRetryConfig()),
			dlq,
		),
	)

	workers := make([]messaging.Worker, 0, max(cfg.KafkaOrdersWorkers, 1))
	for range max(cfg.KafkaOrdersWorkers, 1) {
		workers = append(workers, kafka.NewConsumer(
			cfg.KafkaBrokers,
			cfg.KafkaOrdersTopic,
			cfg.KafkaOrdersConsumerGroup,
		))
	}

	slog.Info("Starting order webhook consumers",
		"topic", cfg.KafkaOrdersTopic,
		"group", cfg.KafkaOrdersConsumerGroup,
		"workers", len(workers))

	return messaging.NewRunner(workers, handler).Start(ctx)
}
