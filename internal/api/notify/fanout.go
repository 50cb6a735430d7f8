package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/api/domain/order"
	"storefront/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

type Sink struct {
	Name     string
	Notifier order.Notifier
}

// Fanout delivers a record to every sink concurrently. One failing sink never
// stops the others; all failures come back joined under ErrNotify.
type Fanout struct {
	sinks []Sink
}

var _ order.Notifier = (*Fanout)(nil)

func NewFanout(sinks ...Sink) *Fanout {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Notifier != nil {
			active = append(active, s)
		}
	}
	return &Fanout{sinks: active}
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Notify(ctx context.Context, record order.OrderRecord) error {
	errs := make([]error, len(f.sinks))

	var g errgroup.Group
	for i, sink := range f.sinks {
		g.Go(func() error {
			if err := sink.Notifier.Notify(ctx, record); err != nil {
				metrics.Notifications.WithLabelValues(sink.Name, "failed").Inc()
				slog.WarnContext(ctx, "Notification sink failed",
					"sink", sink.Name,
					"form_id", record.FormID,
					slog.Any("error", err))
				errs[i] = fmt.Errorf("%s: %w", sink.Name, err)
				return nil
			}
			metrics.Notifications.WithLabelValues(sink.Name, "delivered").Inc()
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}
	return nil
}
