package order

import "context"

//go:generate mockgen -source notifier.go -destination mock_notifier.go -package order

// Notifier is told about every record the pipeline created or moved forward.
// It runs after the store write has committed; its error is logged and never
// changes the outcome of the delivery.
type Notifier interface {
	Notify(ctx context.Context, record OrderRecord) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, record OrderRecord) error

func (f NotifierFunc) Notify(ctx context.Context, record OrderRecord) error {
	return f(ctx, record)
}
