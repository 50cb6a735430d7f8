package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/api/domain/order"
	"storefront/internal/api/messaging"
)

// AsyncProcessor processes webhooks asynchronously by publishing to Kafka.
// Envelopes are keyed by formId so every delivery for one form lands on the
// same partition.
type AsyncProcessor struct {
	publisher messaging.Publisher
}

func NewAsyncProcessor(publisher messaging.Publisher) *AsyncProcessor {
	return &AsyncProcessor{publisher: publisher}
}

func (p *AsyncProcessor) Process(ctx context.Context, raw []byte) error {
	fragment, err := order.Normalize(raw)
	if err != nil {
		return err
	}

	envelope, err := messaging.NewEnvelope(fragment.FormID, messaging.TypeProviderWebhook, json.RawMessage(raw))
	if err != nil {
		return fmt.Errorf("create envelope: %w", err)
	}
	if err := p.publisher.Publish(ctx, envelope); err != nil {
		return fmt.Errorf("publish webhook %s: %w", fragment.FormID, err)
	}
	return nil
}
