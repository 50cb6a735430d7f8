package messaging

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"storefront/pkg/metrics"
)

const dlqPublishTimeout = 5 * time.Second

var (
	// ErrMaxRetriesExceeded is returned when all retry attempts fail.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	ErrWorkerPanic = errors.New("worker panicked")
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// WithRetry wraps a handler with exponential backoff + jitter retry logic.
func WithRetry(handler MessageHandler, cfg RetryConfig) MessageHandler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return func(ctx context.Context, key, value []byte) error {
		backoff := cfg.InitialBackoff

		var lastErr error
		for attempt := range cfg.MaxAttempts {
			lastErr = handler(ctx, key, value)
			if lastErr == nil {
				return nil
			}

			if attempt < cfg.MaxAttempts-1 {
				jitter := time.Duration(rand.IntN(100)) * time.Millisecond
				sleepTime := min(backoff+jitter, cfg.MaxBackoff)

				slog.WarnContext(ctx, "Message handler failed, retrying",
					"key", string(key),
					"attempt", attempt+1,
					"backoff", sleepTime,
					slog.Any("error", lastErr))

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(sleepTime):
				}

				backoff *= 2
			}
		}

		return errors.Join(ErrMaxRetriesExceeded, lastErr)
	}
}

// DLQPublisher can publish failed messages to a dead letter queue.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, key, value []byte, err error) error
}

// WithDLQ parks messages the wrapped handler gave up on and reports success
// so the consumer commits past them.
func WithDLQ(handler MessageHandler, dlq DLQPublisher) MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		err := handler(ctx, key, value)
		if err == nil {
			return nil
		}
		// the DLQ write must survive shutdown of the consumer context
		dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dlqPublishTimeout)
		defer cancel()
		// publish errors are logged by the implementation
		_ = dlq.PublishToDLQ(dlqCtx, key, value, err)
		return nil
	}
}

// WithMetrics records processing duration and outcome per topic and group.
func WithMetrics(topic, group string, handler MessageHandler) MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		start := time.Now()
		err := handler(ctx, key, value)

		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.KafkaProcessingDuration.WithLabelValues(topic, group, status).Observe(time.Since(start).Seconds())
		metrics.KafkaMessagesProcessed.WithLabelValues(topic, group, status).Inc()
		return err
	}
}
