package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/api/domain/order"
	"storefront/pkg/correlation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DeliversAsynchronously(t *testing.T) {
	// given
	got := make(chan order.OrderRecord, 1)
	d := NewDispatcher(order.NotifierFunc(func(_ context.Context, rec order.OrderRecord) error {
		got <- rec
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// when
	require.NoError(t, d.Notify(context.Background(), testRecord()))

	// then
	select {
	case rec := <-got:
		assert.Equal(t, "f1", rec.FormID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(order.NotifierFunc(func(context.Context, order.OrderRecord) error { return nil }),
		WithQueueSize(1))

	require.NoError(t, d.Notify(context.Background(), testRecord()))
	assert.ErrorIs(t, d.Notify(context.Background(), testRecord()), ErrQueueFull)
}

func TestDispatcher_ClosedRejects(t *testing.T) {
	d := NewDispatcher(order.NotifierFunc(func(context.Context, order.OrderRecord) error { return nil }))
	d.Close()
	d.Close()

	assert.ErrorIs(t, d.Notify(context.Background(), testRecord()), ErrDispatcherClosed)
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	// given
	delivered := make(chan string, 3)
	d := NewDispatcher(order.NotifierFunc(func(_ context.Context, rec order.OrderRecord) error {
		delivered <- rec.FormID
		return nil
	}), WithWorkers(1), WithQueueSize(3))

	for _, id := range []string{"a", "b", "c"} {
		rec := testRecord()
		rec.FormID = id
		require.NoError(t, d.Notify(context.Background(), rec))
	}

	// when
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	// then
	close(delivered)
	var ids []string
	for id := range delivered {
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestDispatcher_BoundsEachDelivery(t *testing.T) {
	// given
	result := make(chan error, 1)
	d := NewDispatcher(order.NotifierFunc(func(ctx context.Context, _ order.OrderRecord) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}), WithTimeout(20*time.Millisecond))

	// the caller's context is cancelled right away; delivery ignores that
	// and is bounded only by the dispatcher timeout
	callerCtx, cancelCaller := context.WithCancel(correlation.WithID(context.Background(), "corr-1"))
	require.NoError(t, d.Notify(callerCtx, testRecord()))
	cancelCaller()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	require.NoError(t, d.Run(ctx))

	// then
	assert.True(t, errors.Is(<-result, context.DeadlineExceeded))
}

func TestDispatcher_KeepsContextValues(t *testing.T) {
	ids := make(chan string, 1)
	d := NewDispatcher(order.NotifierFunc(func(ctx context.Context, _ order.OrderRecord) error {
		ids <- correlation.FromContext(ctx)
		return nil
	}))
	require.NoError(t, d.Notify(correlation.WithID(context.Background(), "corr-9"), testRecord()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, "corr-9", <-ids)
}

func TestDispatcher_KeepsPerFormOrder(t *testing.T) {
	// given
	var mu sync.Mutex
	var seen []order.Status
	d := NewDispatcher(order.NotifierFunc(func(_ context.Context, rec order.OrderRecord) error {
		if rec.Status == order.StatusPending {
			// a slow first delivery must not let the newer state overtake it
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		seen = append(seen, rec.Status)
		mu.Unlock()
		return nil
	}), WithWorkers(4))

	pending := testRecord()
	pending.Status = order.StatusPending
	completed := testRecord()
	completed.Status = order.StatusCompleted

	// when
	require.NoError(t, d.Notify(context.Background(), pending))
	require.NoError(t, d.Notify(context.Background(), completed))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	// then
	assert.Equal(t, []order.Status{order.StatusPending, order.StatusCompleted}, seen)
}
