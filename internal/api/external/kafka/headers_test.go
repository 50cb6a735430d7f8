package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/pkg/correlation"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCorrelationID(t *testing.T) {
	t.Run("header present", func(t *testing.T) {
		ctx := extractCorrelationID(context.Background(), []kafka.Header{
			{Key: "other", Value: []byte("x")},
			{Key: correlation.KafkaHeaderName, Value: []byte("corr-42")},
		})
		assert.Equal(t, "corr-42", correlation.FromContext(ctx))
	})

	t.Run("header missing", func(t *testing.T) {
		ctx := extractCorrelationID(context.Background(), nil)
		assert.NotEmpty(t, correlation.FromContext(ctx))
	})
}

func TestDLQHeaders(t *testing.T) {
	failedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := correlation.WithID(context.Background(), "corr-7")

	headers := dlqHeaders(ctx, errors.New("store unavailable"), failedAt)

	require.Len(t, headers, 3)
	assert.Equal(t, "error", headers[0].Key)
	assert.Equal(t, "store unavailable", string(headers[0].Value))
	assert.Equal(t, "2026-03-01T12:00:00Z", string(headers[1].Value))
	assert.Equal(t, correlation.KafkaHeaderName, headers[2].Key)
	assert.Equal(t, "corr-7", string(headers[2].Value))

	assert.Len(t, dlqHeaders(context.Background(), errors.New("x"), failedAt), 2)
}
