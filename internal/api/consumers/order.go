package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/api/domain/order"
	"storefront/internal/api/messaging"
	"storefront/pkg/metrics"
)

// WebhookProcessor is the part of order.OrderService the consumer drives.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, raw []byte) (order.Outcome, error)
}

// OrderMessageController handles provider webhook messages from Kafka.
type OrderMessageController struct {
	service WebhookProcessor
}

func NewOrderMessageController(s WebhookProcessor) *OrderMessageController {
	return &OrderMessageController{service: s}
}

// HandleMessage processes a single webhook message. Validation failures are
// final and acknowledged; anything else is returned for retry and DLQ.
func (c *OrderMessageController) HandleMessage(ctx context.Context, key, value []byte) error {
	var env messaging.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal envelope",
			"key", string(key),
			slog.Any("error", err))
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	slog.DebugContext(ctx, "Processing webhook message",
		"event_id", env.EventID,
		"key", env.Key,
		"type", env.Type)

	if env.Type != messaging.TypeProviderWebhook {
		slog.WarnContext(ctx, "Unexpected message type, skipping",
			"event_id", env.EventID,
			"type", env.Type)
		return nil
	}

	outcome, err := c.service.ProcessWebhook(ctx, env.Payload)
	if err != nil {
		var verr *order.ValidationError
		if errors.As(err, &verr) {
			metrics.WebhookRejections.WithLabelValues(string(verr.Code)).Inc()
			slog.WarnContext(ctx, "Invalid webhook message dropped",
				"event_id", env.EventID,
				"key", env.Key,
				"field", verr.Field,
				slog.Any("error", err))
			return nil
		}

		slog.ErrorContext(ctx, "Failed to process webhook message",
			"event_id", env.EventID,
			"key", env.Key,
			slog.Any("error", err))
		return err
	}

	metrics.WebhookDeliveries.WithLabelValues(string(outcome.Action.Kind), string(outcome.Action.Reason)).Inc()
	slog.InfoContext(ctx, "Webhook message processed",
		"event_id", env.EventID,
		"form_id", outcome.Record.FormID,
		"action", outcome.Action.Kind,
		"status", outcome.Record.Status)

	return nil
}
