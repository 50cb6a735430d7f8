package kafka

import (
	"context"
	"log/slog"
	"time"

	"storefront/internal/api/messaging"
	"storefront/pkg/correlation"
	"storefront/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

var _ messaging.DLQPublisher = (*DLQPublisher)(nil)

// DLQPublisher publishes failed messages to a Dead Letter Queue topic.
type DLQPublisher struct {
	writer *kafka.Writer
}

func NewDLQPublisher(brokers []string, dlqTopic string) *DLQPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        dlqTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	return &DLQPublisher{writer: writer}
}

// PublishToDLQ sends a failed message to DLQ with error information in headers.
func (p *DLQPublisher) PublishToDLQ(ctx context.Context, key, value []byte, err error) error {
	msg := kafka.Message{
		Key:     key,
		Value:   value,
		Headers: dlqHeaders(ctx, err, time.Now().UTC()),
	}

	if writeErr := p.writer.WriteMessages(ctx, msg); writeErr != nil {
		slog.ErrorContext(ctx, "Failed to publish to DLQ",
			"topic", p.writer.Topic,
			"key", string(key),
			slog.Any("error", writeErr),
			slog.Any("original_error", err))
		return writeErr
	}

	metrics.KafkaDLQMessages.WithLabelValues(p.writer.Topic).Inc()
	slog.WarnContext(ctx, "Message sent to DLQ",
		"topic", p.writer.Topic,
		"key", string(key),
		slog.Any("error", err))
	return nil
}

func dlqHeaders(ctx context.Context, err error, failedAt time.Time) []kafka.Header {
	headers := []kafka.Header{
		{Key: "error", Value: []byte(err.Error())},
		{Key: "failed_at", Value: []byte(failedAt.Format(time.RFC3339))},
	}
	if corrID := correlation.FromContext(ctx); corrID != "" {
		headers = append(headers, kafka.Header{Key: correlation.KafkaHeaderName, Value: []byte(corrID)})
	}
	return headers
}

func (p *DLQPublisher) Close() error {
	return p.writer.Close()
}
