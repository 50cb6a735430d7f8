// Package opensearch projects order records into a search index.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/api/domain/order"

	"github.com/opensearch-project/opensearch-go"
)

var _ order.Notifier = (*OrderIndexer)(nil)

// OrderIndexer keeps one document per formId. Documents are versioned by
// UpdatedAt, so a late delivery of an older state never overwrites a newer one.
type OrderIndexer struct {
	client *opensearch.Client
	index  string
}

func NewOrderIndexer(ctx context.Context, urls []string, index string) (*OrderIndexer, error) {
	if len(urls) == 0 {
		return nil, errors.New("no OpenSearch addresses configured")
	}
	if index == "" {
		return nil, errors.New("no OpenSearch orders index configured")
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: urls,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}

	indexer := &OrderIndexer{client: client, index: index}
	if err := indexer.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return indexer, nil
}

func (s *OrderIndexer) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("indices.exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"form_id":              map[string]any{"type": "keyword"},
				"status":               map[string]any{"type": "keyword"},
				"amount":               map[string]any{"type": "scaled_float", "scaling_factor": 100},
				"currency":             map[string]any{"type": "keyword"},
				"customer_name":        map[string]any{"type": "text"},
				"customer_email":       map[string]any{"type": "keyword"},
				"item_names":           map[string]any{"type": "text"},
				"provider_payment_id":  map[string]any{"type": "keyword"},
				"provider_document_id": map[string]any{"type": "keyword"},
				"received_at":          map[string]any{"type": "date"},
				"updated_at":           map[string]any{"type": "date"},
			},
		},
		"settings": map[string]any{
			"number_of_replicas": 0,
		},
	}
	buf, _ := json.Marshal(body)
	cr, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithBody(bytes.NewReader(buf)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("indices.create: %w", err)
	}
	defer cr.Body.Close()
	if cr.IsError() {
		return fmt.Errorf("indices.create error: %s", cr.String())
	}
	return nil
}

type orderDoc struct {
	FormID             string    `json:"form_id"`
	Status             string    `json:"status"`
	Amount             float64   `json:"amount"`
	Currency           string    `json:"currency"`
	CustomerName       string    `json:"customer_name,omitempty"`
	CustomerEmail      string    `json:"customer_email,omitempty"`
	ItemNames          []string  `json:"item_names,omitempty"`
	ProviderPaymentID  string    `json:"provider_payment_id,omitempty"`
	ProviderDocumentID string    `json:"provider_document_id,omitempty"`
	ReceivedAt         time.Time `json:"received_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toDoc(rec order.OrderRecord) orderDoc {
	doc := orderDoc{
		FormID:     rec.FormID,
		Status:     string(rec.Status),
		Amount:     rec.Amount.InexactFloat64(),
		Currency:   rec.Currency,
		ReceivedAt: rec.ReceivedAt.UTC(),
		UpdatedAt:  rec.UpdatedAt.UTC(),
	}
	if ci := rec.CustomerInfo; ci != nil {
		doc.CustomerName = ci.Name
		doc.CustomerEmail = ci.Email
	}
	for _, item := range rec.Items {
		doc.ItemNames = append(doc.ItemNames, item.Name)
	}
	if rec.ProviderPaymentID != nil {
		doc.ProviderPaymentID = *rec.ProviderPaymentID
	}
	if rec.ProviderDocumentID != nil {
		doc.ProviderDocumentID = *rec.ProviderDocumentID
	}
	return doc
}

func (s *OrderIndexer) Notify(ctx context.Context, record order.OrderRecord) error {
	payload, err := json.Marshal(toDoc(record))
	if err != nil {
		return fmt.Errorf("encode order document: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(payload),
		s.client.Index.WithDocumentID(record.FormID),
		s.client.Index.WithVersion(int(record.UpdatedAt.UnixNano())),
		s.client.Index.WithVersionType("external"),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	defer res.Body.Close()
	// the index already holds this state or a newer one
	if res.StatusCode == http.StatusConflict {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.String())
	}
	return nil
}
