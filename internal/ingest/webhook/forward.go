package webhook

import (
	"context"
	"fmt"

	"storefront/internal/api/domain/order"
	"storefront/internal/ingest/apiclient"
)

// ForwardProcessor hands deliveries to the API service synchronously over HTTP.
type ForwardProcessor struct {
	client apiclient.Client
}

func NewForwardProcessor(client apiclient.Client) *ForwardProcessor {
	return &ForwardProcessor{client: client}
}

func (p *ForwardProcessor) Process(ctx context.Context, raw []byte) error {
	fragment, err := order.Normalize(raw)
	if err != nil {
		return err
	}
	if err := p.client.ForwardWebhook(ctx, raw); err != nil {
		return fmt.Errorf("forward webhook %s: %w", fragment.FormID, err)
	}
	return nil
}
