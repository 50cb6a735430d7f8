// Package memory holds an in-process order store. It is not durable and is
// meant for local development and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"storefront/internal/api/domain/order"
	"storefront/pkg/keylock"
)

var _ order.OrderStore = (*OrderStore)(nil)

type OrderStore struct {
	locks *keylock.Locker

	mu      sync.RWMutex
	records map[string]*order.OrderRecord
	order   []string
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		locks:   keylock.New(),
		records: make(map[string]*order.OrderRecord),
	}
}

// InTransaction holds the per-form lock for the duration of fn. Writes made
// by fn are visible immediately and are not rolled back when fn fails.
func (s *OrderStore) InTransaction(ctx context.Context, formID string, fn func(tx order.TxOrderStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.Lock(formID)
	defer unlock()

	return fn(s)
}

func (s *OrderStore) Get(_ context.Context, formID string) (*order.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[formID]
	if !ok {
		return nil, nil
	}
	c := clone(*rec)
	return &c, nil
}

func (s *OrderStore) List(_ context.Context, query *order.ListQuery) ([]order.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.OrderRecord, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		if query != nil && !query.Matches(*rec) {
			continue
		}
		out = append(out, clone(*rec))
		if query != nil && query.Limit > 0 && len(out) == query.Limit {
			break
		}
	}
	return out, nil
}

func (s *OrderStore) Count(_ context.Context, query *order.ListQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if query == nil {
		return len(s.order), nil
	}
	n := 0
	for _, id := range s.order {
		if query.Matches(*s.records[id]) {
			n++
		}
	}
	return n, nil
}

func (s *OrderStore) Create(_ context.Context, record order.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.FormID]; ok {
		return order.ErrAlreadyExists
	}
	c := clone(record)
	s.records[record.FormID] = &c
	s.order = append(s.order, record.FormID)
	return nil
}

func (s *OrderStore) UpdateStatus(_ context.Context, formID string, status order.Status, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[formID]
	if !ok {
		return order.ErrNotFound
	}
	rec.Status = status
	rec.UpdatedAt = updatedAt
	return nil
}

// clone copies the slices and pointers a caller could otherwise mutate.
func clone(rec order.OrderRecord) order.OrderRecord {
	rec.Items = slices.Clone(rec.Items)
	rec.Warnings = slices.Clone(rec.Warnings)
	if rec.CustomerInfo != nil {
		ci := *rec.CustomerInfo
		rec.CustomerInfo = &ci
	}
	return rec
}
