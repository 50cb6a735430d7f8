//go:build !integration

package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storefront/pkg/correlation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, attempts int) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		BaseURL:        url,
		Timeout:        5 * time.Second,
		RetryAttempts:  attempts,
		RetryBaseDelay: 10 * time.Millisecond,
		RetryMaxDelay:  50 * time.Millisecond,
	})
}

func TestHTTPClient_ForwardWebhook(t *testing.T) {
	t.Run("posts raw payload with correlation id", func(t *testing.T) {
		payload := []byte(`{"formId":"f1","status":"completed","amount":"100.00","currency":"ILS"}`)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/internal/webhooks/provider", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "corr-1", r.Header.Get(correlation.HeaderName))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, body)

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"received":true}`))
		}))
		defer server.Close()

		ctx := correlation.WithID(context.Background(), "corr-1")
		err := newTestClient(server.URL, 1).ForwardWebhook(ctx, payload)

		assert.NoError(t, err)
	})

	t.Run("returns ErrBadRequest on 400 without retrying", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"missing_field","field":"formId"}`))
		}))
		defer server.Close()

		err := newTestClient(server.URL, 3).ForwardWebhook(context.Background(), []byte(`{}`))

		assert.ErrorIs(t, err, ErrBadRequest)
		assert.Contains(t, err.Error(), "missing_field")
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("returns ErrBadRequest on 413", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}))
		defer server.Close()

		err := newTestClient(server.URL, 3).ForwardWebhook(context.Background(), []byte(`{}`))

		assert.ErrorIs(t, err, ErrBadRequest)
	})

	t.Run("returns ErrServiceUnavailable on 500 and retries", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		err := newTestClient(server.URL, 3).ForwardWebhook(context.Background(), []byte(`{}`))

		assert.ErrorIs(t, err, ErrServiceUnavailable)
		assert.Equal(t, int32(3), attempts.Load(), "should retry 3 times")
	})

	t.Run("succeeds on retry after temporary failure", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		err := newTestClient(server.URL, 3).ForwardWebhook(context.Background(), []byte(`{}`))

		assert.NoError(t, err)
		assert.Equal(t, int32(2), attempts.Load(), "should succeed on second attempt")
	})

	t.Run("unreachable api is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		err := newTestClient(url, 2).ForwardWebhook(context.Background(), []byte(`{}`))

		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("unexpected status is not retried", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		err := newTestClient(server.URL, 3).ForwardWebhook(context.Background(), []byte(`{}`))

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrServiceUnavailable)
		assert.Equal(t, int32(1), attempts.Load())
	})
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPClientConfig{
		BaseURL:        server.URL,
		Timeout:        5 * time.Second,
		RetryAttempts:  3,
		RetryBaseDelay: 100 * time.Millisecond,
		RetryMaxDelay:  500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.ForwardWebhook(ctx, []byte(`{}`))

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	maxDelay := 300 * time.Millisecond

	for attempt := 0; attempt < 6; attempt++ {
		d := calculateBackoff(attempt, base, maxDelay)
		assert.LessOrEqual(t, d, maxDelay)
		assert.Greater(t, d, time.Duration(0))
	}
}
