package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		wantCalls    int
		wantMaxRetry bool
	}{
		{name: "first attempt succeeds", failures: 0, wantCalls: 1},
		{name: "succeeds after transient failures", failures: 2, wantCalls: 3},
		{name: "gives up after max attempts", failures: 10, wantCalls: 3, wantMaxRetry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			calls := 0
			handler := WithRetry(func(context.Context, []byte, []byte) error {
				calls++
				if calls <= tt.failures {
					return errors.New("store unavailable")
				}
				return nil
			}, fastRetry)

			// when
			err := handler(context.Background(), []byte("f1"), []byte("{}"))

			// then
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantMaxRetry {
				assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
				assert.ErrorContains(t, err, "store unavailable")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	handler := WithRetry(func(context.Context, []byte, []byte) error {
		calls++
		cancel()
		return errors.New("boom")
	}, RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second})

	err := handler(ctx, nil, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

type fakeDLQ struct {
	key, value []byte
	err        error
	ctxErr     error
}

func (f *fakeDLQ) PublishToDLQ(ctx context.Context, key, value []byte, err error) error {
	f.key, f.value, f.err = key, value, err
	f.ctxErr = ctx.Err()
	return nil
}

func TestWithDLQ(t *testing.T) {
	t.Run("success is passed through", func(t *testing.T) {
		dlq := &fakeDLQ{}
		handler := WithDLQ(func(context.Context, []byte, []byte) error { return nil }, dlq)

		require.NoError(t, handler(context.Background(), []byte("f1"), []byte("v")))
		assert.Nil(t, dlq.key)
	})

	t.Run("failure is parked and committed", func(t *testing.T) {
		dlq := &fakeDLQ{}
		cause := errors.New("poison")
		handler := WithDLQ(func(context.Context, []byte, []byte) error { return cause }, dlq)

		// the consumer context is already gone during shutdown
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, handler(ctx, []byte("f1"), []byte("v")))
		assert.Equal(t, []byte("f1"), dlq.key)
		assert.Equal(t, []byte("v"), dlq.value)
		assert.ErrorIs(t, dlq.err, cause)
		assert.NoError(t, dlq.ctxErr)
	})
}

func TestWithMetrics(t *testing.T) {
	okBefore := testutil.ToFloat64(metrics.KafkaMessagesProcessed.WithLabelValues("orders-test", "g", "success"))
	errBefore := testutil.ToFloat64(metrics.KafkaMessagesProcessed.WithLabelValues("orders-test", "g", "error"))

	ok := WithMetrics("orders-test", "g", func(context.Context, []byte, []byte) error { return nil })
	failing := WithMetrics("orders-test", "g", func(context.Context, []byte, []byte) error { return errors.New("x") })

	require.NoError(t, ok(context.Background(), nil, nil))
	require.Error(t, failing(context.Background(), nil, nil))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.KafkaMessagesProcessed.WithLabelValues("orders-test", "g", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(metrics.KafkaMessagesProcessed.WithLabelValues("orders-test", "g", "error")))
}
