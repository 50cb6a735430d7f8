// Package live pushes order changes to websocket subscribers, one stream per
// formId.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront/internal/api/domain/order"
	"storefront/pkg/metrics"
)

const defaultBuffer = 16

// Update is the message written to subscribers.
type Update struct {
	Type  string            `json:"type"`
	Order order.OrderRecord `json:"order"`
}

const (
	UpdateSnapshot = "snapshot"
	UpdateChanged  = "changed"
)

// Message is one encoded Update together with the UpdatedAt of its order.
type Message struct {
	UpdatedAt time.Time
	Data      []byte
}

type Subscription struct {
	formID string
	ch     chan Message
	hub    *Hub
	once   sync.Once

	// guarded by hub.mu
	sent bool
	last time.Time
}

// Updates yields encoded Update messages with strictly increasing UpdatedAt.
// It is closed when the subscription is cancelled, when the hub closes, or
// when the subscriber falls behind.
func (s *Subscription) Updates() <-chan Message {
	return s.ch
}

func (s *Subscription) Cancel() {
	s.hub.remove(s)
}

type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
}

var _ order.Notifier = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: defaultBuffer,
	}
}

func (h *Hub) Subscribe(formID string) *Subscription {
	sub := &Subscription{formID: formID, ch: make(chan Message, h.buffer), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}
	set, ok := h.subs[formID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[formID] = set
	}
	set[sub] = struct{}{}
	metrics.LiveSubscribers.Inc()
	return sub
}

// Notify broadcasts the record to its formId subscribers. A record that is not
// newer than the last one sent to a subscriber is skipped for it. Subscribers
// whose buffer is full are dropped instead of blocking the broadcast.
func (h *Hub) Notify(_ context.Context, record order.OrderRecord) error {
	msg, err := Encode(UpdateChanged, record)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[record.FormID] {
		if sub.sent && !record.UpdatedAt.After(sub.last) {
			continue
		}
		select {
		case sub.ch <- Message{UpdatedAt: record.UpdatedAt, Data: msg}:
			sub.sent = true
			sub.last = record.UpdatedAt
		default:
			h.removeLocked(sub)
		}
	}
	return nil
}

func (h *Hub) Subscribers(formID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[formID])
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			h.removeLocked(sub)
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	set, ok := h.subs[sub.formID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.formID)
	}
	sub.once.Do(func() { close(sub.ch) })
	metrics.LiveSubscribers.Dec()
}

func Encode(kind string, record order.OrderRecord) ([]byte, error) {
	msg, err := json.Marshal(Update{Type: kind, Order: record})
	if err != nil {
		return nil, fmt.Errorf("encode live update: %w", err)
	}
	return msg, nil
}
