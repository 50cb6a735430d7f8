package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/api/domain/order"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func testRecord() order.OrderRecord {
	paymentID := "pay-77"
	return order.OrderRecord{
		FormID:   "f1",
		Status:   order.StatusCompleted,
		Amount:   decimal.NewFromInt(100),
		Currency: "ILS",
		CustomerInfo: &order.CustomerInfo{
			Name:  "Noa Levi",
			Email: "noa@example.com",
			City:  "Haifa",
		},
		Items: []order.Item{
			{Name: "Mug", Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		},
		ProviderPaymentID: &paymentID,
		Warnings:          []string{"custom ignored: not a JSON object"},
		ReceivedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMailNotifier_Notify(t *testing.T) {
	// given
	mailer := &fakeMailer{}
	n := NewMailNotifier(mailer, "admin@example.com")

	// when
	err := n.Notify(context.Background(), testRecord())

	// then
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "admin@example.com", msg.to)
	assert.Equal(t, "Order f1 is completed (100.00 ILS)", msg.subject)
	assert.Contains(t, msg.body, "Status:   completed")
	assert.Contains(t, msg.body, "Payment:  pay-77")
	assert.Contains(t, msg.body, "Noa Levi")
	assert.Contains(t, msg.body, "noa@example.com")
	assert.Contains(t, msg.body, "Address: Haifa")
	assert.Contains(t, msg.body, "2 x Mug @ 50.00 = 100.00")
	assert.Contains(t, msg.body, "- custom ignored: not a JSON object")
	assert.NotContains(t, msg.body, "Document:")
}

func TestMailNotifier_NotifyError(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("dial tcp: connection refused")}
	n := NewMailNotifier(mailer, "admin@example.com")

	err := n.Notify(context.Background(), testRecord())

	assert.ErrorIs(t, err, ErrNotify)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSummary_MinimalRecord(t *testing.T) {
	rec := order.OrderRecord{
		FormID:   "f2",
		Status:   order.StatusPending,
		Amount:   decimal.RequireFromString("9.5"),
		Currency: "USD",
	}

	body := Summary(rec)

	assert.Contains(t, body, "Amount:   9.50 USD")
	assert.NotContains(t, body, "Customer")
	assert.NotContains(t, body, "Items")
	assert.NotContains(t, body, "Warnings")
}
