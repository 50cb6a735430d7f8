// Package webhook hands validated provider deliveries from the ingest
// gateway to the API service.
package webhook

import "context"

// Processor accepts one raw provider delivery. Deliveries that fail
// validation are rejected with the normalizer's *order.ValidationError before anything leaves
// the gateway.
type Processor interface {
	Process(ctx context.Context, raw []byte) error
}
