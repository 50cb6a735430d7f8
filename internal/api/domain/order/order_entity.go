package order

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderRecord is the canonical, persisted view of one checkout form.
type OrderRecord struct {
	FormID             string          `json:"formId"`
	Status             Status          `json:"status"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	CustomerInfo       *CustomerInfo   `json:"customerInfo,omitempty"`
	Items              []Item          `json:"items"`
	ProviderDocumentID *string         `json:"providerDocumentId,omitempty"`
	ProviderPaymentID  *string         `json:"providerPaymentId,omitempty"`
	Warnings           []string        `json:"warnings,omitempty"`
	RawPayloadDigest   string          `json:"rawPayloadDigest"`
	ReceivedAt         time.Time       `json:"receivedAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

type CustomerInfo struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

func (c *CustomerInfo) empty() bool {
	return c == nil || *c == CustomerInfo{}
}

type Item struct {
	Name      string          `json:"nameLocalized"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Total is quantity times unit price.
func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var AvailableStatuses = []Status{StatusPending, StatusCompleted, StatusFailed, StatusUnknown}

// providerStatuses maps provider vocabulary onto the closed status set.
// Anything absent maps to StatusUnknown.
var providerStatuses = map[string]Status{
	"approved":   StatusCompleted,
	"completed":  StatusCompleted,
	"complete":   StatusCompleted,
	"success":    StatusCompleted,
	"successful": StatusCompleted,
	"succeeded":  StatusCompleted,
	"paid":       StatusCompleted,
	"captured":   StatusCompleted,
	"ok":         StatusCompleted,

	"pending":     StatusPending,
	"processing":  StatusPending,
	"in_progress": StatusPending,
	"in-progress": StatusPending,
	"created":     StatusPending,
	"waiting":     StatusPending,
	"authorized":  StatusPending,
	"on_hold":     StatusPending,

	"failed":    StatusFailed,
	"failure":   StatusFailed,
	"declined":  StatusFailed,
	"rejected":  StatusFailed,
	"cancelled": StatusFailed,
	"canceled":  StatusFailed,
	"error":     StatusFailed,
	"expired":   StatusFailed,
	"refused":   StatusFailed,
}

// MapProviderStatus converts a raw provider status string.
func MapProviderStatus(raw string) Status {
	if s, ok := providerStatuses[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

func NewStatus(raw string) (Status, error) {
	if slices.Contains(AvailableStatuses, Status(raw)) {
		return Status(raw), nil
	}
	return "", fmt.Errorf("invalid order status %q", raw)
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return 0
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo is the forward-only rule: unknown -> pending -> completed|failed.
// Nothing moves to unknown and terminal states never change.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusUnknown:
		return slices.Contains([]Status{StatusPending, StatusCompleted, StatusFailed}, next)
	case StatusPending:
		return slices.Contains([]Status{StatusCompleted, StatusFailed}, next)
	case StatusCompleted, StatusFailed:
		return false
	default:
		return false
	}
}

// Fragment is a normalized delivery: an OrderRecord without the fields the
// pipeline assigns (ReceivedAt, UpdatedAt).
type Fragment struct {
	FormID             string
	Status             Status
	ProviderStatus     string
	Amount             decimal.Decimal
	Currency           string
	CustomerInfo       *CustomerInfo
	Items              []Item
	ProviderDocumentID *string
	ProviderPaymentID  *string
	Warnings           []string
	Digest             string
}

// NewRecord builds the record stored on first observation.
func (f Fragment) NewRecord(now time.Time) OrderRecord {
	items := f.Items
	if items == nil {
		items = []Item{}
	}
	return OrderRecord{
		FormID:             f.FormID,
		Status:             f.Status,
		Amount:             f.Amount,
		Currency:           f.Currency,
		CustomerInfo:       f.CustomerInfo,
		Items:              items,
		ProviderDocumentID: f.ProviderDocumentID,
		ProviderPaymentID:  f.ProviderPaymentID,
		Warnings:           f.Warnings,
		RawPayloadDigest:   f.Digest,
		ReceivedAt:         now,
		UpdatedAt:          now,
	}
}

type ListQuery struct {
	Statuses []Status
	Limit    int
}

func (q *ListQuery) Validate() error {
	for _, s := range q.Statuses {
		if _, err := NewStatus(string(s)); err != nil {
			return err
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("invalid limit: %d", q.Limit)
	}
	return nil
}

type ListQueryBuilder struct {
	query *ListQuery
}

func NewListQueryBuilder() *ListQueryBuilder {
	return &ListQueryBuilder{query: &ListQuery{}}
}

func (b *ListQueryBuilder) WithStatuses(statuses ...Status) *ListQueryBuilder {
	b.query.Statuses = statuses
	return b
}

func (b *ListQueryBuilder) WithLimit(limit int) *ListQueryBuilder {
	b.query.Limit = limit
	return b
}

func (b *ListQueryBuilder) Build() (*ListQuery, error) {
	if err := b.query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, err.Error())
	}
	return b.query, nil
}

// Matches applies the query filter to a single record; used by stores that
// filter in memory.
func (q *ListQuery) Matches(rec OrderRecord) bool {
	return len(q.Statuses) == 0 || slices.Contains(q.Statuses, rec.Status)
}

// OrderList is the body of the order query endpoint.
type OrderList struct {
	TotalOrders int           `json:"totalOrders"`
	Orders      []OrderRecord `json:"orders"`
}
