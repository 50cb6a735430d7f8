package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Outcome describes what a delivery did.
type Outcome struct {
	Action Action
	Record OrderRecord
}

type OrderService struct {
	store    OrderStore
	notifier Notifier
	now      func() time.Time
}

func NewOrderService(store OrderStore, notifier Notifier) *OrderService {
	return &OrderService{
		store:    store,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ProcessWebhook runs one provider delivery through normalize, admit and
// write. Notification happens after the write has committed and outside the
// per-form critical section.
//
// Errors: *ValidationError (ErrValidation) for unusable payloads, ErrConflict
// when the store contradicts the guard, ErrStoreUnavailable otherwise.
func (s *OrderService) ProcessWebhook(ctx context.Context, raw []byte) (Outcome, error) {
	fragment, err := Normalize(raw)
	if err != nil {
		return Outcome{}, err
	}

	if len(fragment.Warnings) > 0 {
		slog.WarnContext(ctx, "Webhook normalized with warnings",
			"form_id", fragment.FormID,
			"warnings", fragment.Warnings)
	}
	if fragment.Status == StatusUnknown {
		slog.WarnContext(ctx, "Unrecognized provider status",
			"form_id", fragment.FormID,
			"provider_status", fragment.ProviderStatus)
	}

	var outcome Outcome
	err = s.store.InTransaction(ctx, fragment.FormID, func(tx TxOrderStore) error {
		existing, err := tx.Get(ctx, fragment.FormID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}

		outcome.Action = Admit(fragment, existing)
		// stores keep microseconds
		now := s.now().Truncate(time.Microsecond)

		switch outcome.Action.Kind {
		case ActionCreate:
			record := fragment.NewRecord(now)
			if err := tx.Create(ctx, record); err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			outcome.Record = record
		case ActionUpdateStatus:
			// UpdatedAt versions the record downstream and must grow per form,
			// even when the clock steps back
			if !now.After(existing.UpdatedAt) {
				now = existing.UpdatedAt.Add(time.Microsecond)
			}
			if err := tx.UpdateStatus(ctx, fragment.FormID, outcome.Action.Status, now); err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
			outcome.Record = *existing
			outcome.Record.Status = outcome.Action.Status
			outcome.Record.UpdatedAt = now
		case ActionIgnore:
			outcome.Record = *existing
		}
		return nil
	})
	if err != nil {
		return Outcome{}, classifyStoreError(err)
	}

	slog.InfoContext(ctx, "Webhook processed",
		"form_id", fragment.FormID,
		"action", outcome.Action.Kind,
		"reason", outcome.Action.Reason,
		"status", outcome.Record.Status)

	if outcome.Action.ChangesState() {
		s.notify(ctx, outcome.Record)
	}

	return outcome, nil
}

func (s *OrderService) notify(ctx context.Context, record OrderRecord) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, record); err != nil {
		slog.WarnContext(ctx, "Order notification failed",
			"form_id", record.FormID,
			slog.Any("error", err))
	}
}

func classifyStoreError(err error) error {
	switch {
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

func (s *OrderService) GetOrder(ctx context.Context, formID string) (OrderRecord, error) {
	record, err := s.store.Get(ctx, formID)
	if err != nil {
		return OrderRecord{}, fmt.Errorf("%w: get order: %w", ErrStoreUnavailable, err)
	}
	if record == nil {
		return OrderRecord{}, ErrNotFound
	}
	return *record, nil
}

func (s *OrderService) ListOrders(ctx context.Context, query *ListQuery) (OrderList, error) {
	records, err := s.store.List(ctx, query)
	if err != nil {
		return OrderList{}, fmt.Errorf("%w: list orders: %w", ErrStoreUnavailable, err)
	}
	if records == nil {
		records = []OrderRecord{}
	}

	total := len(records)
	if query != nil && query.Limit > 0 && total == query.Limit {
		count, err := s.store.Count(ctx, query)
		if err != nil {
			return OrderList{}, fmt.Errorf("%w: count orders: %w", ErrStoreUnavailable, err)
		}
		// records are never deleted, so a racing insert can only raise it
		total = max(total, count)
	}
	return OrderList{TotalOrders: total, Orders: records}, nil
}
