package order

import (
	"context"
	"time"
)

//go:generate mockgen -source store.go -destination mock_store.go -package order

// OrderStore is the durable home of order records.
//
// InTransaction runs fn as one atomic unit with respect to every other
// InTransaction call for the same formID. Calls for different formIDs must be
// able to proceed in parallel.
type OrderStore interface {
	TxOrderStore
	InTransaction(ctx context.Context, formID string, fn func(tx TxOrderStore) error) error
}

type TxOrderStore interface {
	// Get returns nil and no error when the form has no record.
	Get(ctx context.Context, formID string) (*OrderRecord, error)
	// List returns records in insertion order.
	List(ctx context.Context, query *ListQuery) ([]OrderRecord, error)
	// Count returns how many records match query, ignoring its limit.
	Count(ctx context.Context, query *ListQuery) (int, error)
	// Create fails with ErrAlreadyExists when the form already has a record.
	Create(ctx context.Context, record OrderRecord) error
	// UpdateStatus fails with ErrNotFound when the form has no record.
	UpdateStatus(ctx context.Context, formID string, status Status, updatedAt time.Time) error
}
