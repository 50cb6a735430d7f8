package notify

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/api/domain/order"
	"storefront/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	defaultTimeout   = 10 * time.Second
)

type job struct {
	ctx    context.Context
	record order.OrderRecord
}

// Dispatcher queues notifications and delivers them from a worker pool, so a
// slow sink never holds the caller. Each formId is pinned to one worker, so
// notifications for a form are delivered in the order they were enqueued.
type Dispatcher struct {
	next    order.Notifier
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queues []chan job
}

var _ order.Notifier = (*Dispatcher)(nil)

type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	workers   int
	queueSize int
	timeout   time.Duration
}

func WithWorkers(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithTimeout bounds each delivery to next.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewDispatcher(next order.Notifier, opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	// queueSize bounds the whole dispatcher; it is split across workers
	perWorker := max((cfg.queueSize+cfg.workers-1)/cfg.workers, 1)
	queues := make([]chan job, cfg.workers)
	for i := range queues {
		queues[i] = make(chan job, perWorker)
	}

	return &Dispatcher{
		next:    next,
		timeout: cfg.timeout,
		queues:  queues,
	}
}

func (d *Dispatcher) queueFor(formID string) chan job {
	h := fnv.New32a()
	_, _ = h.Write([]byte(formID))
	return d.queues[h.Sum32()%uint32(len(d.queues))]
}

// Notify enqueues the record and returns immediately. The caller's
// cancellation does not reach the delivery; its values (correlation id) do.
func (d *Dispatcher) Notify(ctx context.Context, record order.OrderRecord) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queueFor(record.FormID) <- job{ctx: context.WithoutCancel(ctx), record: record}:
		metrics.NotifyQueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued notifications until ctx is done, then stops accepting
// new ones and drains what is already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("Notification dispatcher started", "workers", len(d.queues), "timeout", d.timeout)

	var g errgroup.Group
	for _, queue := range d.queues {
		g.Go(func() error {
			for j := range queue {
				d.deliver(j)
			}
			return nil
		})
	}

	<-ctx.Done()
	d.Close()
	err := g.Wait()

	slog.Info("Notification dispatcher stopped")
	return err
}

// Close stops accepting notifications. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		for _, queue := range d.queues {
			close(queue)
		}
	}
}

func (d *Dispatcher) deliver(j job) {
	metrics.NotifyQueueDepth.Dec()

	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	if err := d.next.Notify(ctx, j.record); err != nil {
		slog.WarnContext(ctx, "Order notification dropped",
			"form_id", j.record.FormID,
			"status", j.record.Status,
			slog.Any("error", err))
	}
}
