// Package apiclient forwards provider deliveries from the ingest gateway to
// the API service over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/pkg/correlation"
)

const forwardPath = "/internal/webhooks/provider"

// Client defines the interface for the API service client.
type Client interface {
	ForwardWebhook(ctx context.Context, raw []byte) error
	Close() error
}

// HTTPClient implements Client using HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   RetryConfig
}

type HTTPClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryCfg: RetryConfig{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
	}
}

// ForwardWebhook posts the raw delivery to the API. Only unavailability is
// retried; the API's idempotency guard absorbs a retry of a delivery that
// was in fact recorded.
func (c *HTTPClient) ForwardWebhook(ctx context.Context, raw []byte) error {
	return DoWithRetry(ctx, c.retryCfg, func() error {
		return c.sendRequest(ctx, forwardPath, raw)
	})
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) sendRequest(ctx context.Context, path string, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if corrID := correlation.FromContext(ctx); corrID != "" {
		httpReq.Header.Set(correlation.HeaderName, corrID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return c.handleResponse(resp)
}

func (c *HTTPClient) handleResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", ErrBadRequest, string(body))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d, body: %s", ErrServiceUnavailable, resp.StatusCode, string(body))
	default:
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}
}
