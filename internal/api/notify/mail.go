// Package notify holds the order.Notifier implementations: the admin mail
// summary, a fan-out over named sinks and an asynchronous dispatcher.
package notify

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/api/domain/order"
)

// Mailer sends one plain-text message. Implementations make a single attempt.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type MailNotifier struct {
	mailer Mailer
	to     string
}

var _ order.Notifier = (*MailNotifier)(nil)

func NewMailNotifier(mailer Mailer, to string) *MailNotifier {
	return &MailNotifier{mailer: mailer, to: to}
}

func (n *MailNotifier) Notify(ctx context.Context, record order.OrderRecord) error {
	if err := n.mailer.Send(ctx, n.to, Subject(record), Summary(record)); err != nil {
		return fmt.Errorf("%w: send mail to %s: %w", ErrNotify, n.to, err)
	}
	return nil
}

func Subject(record order.OrderRecord) string {
	return fmt.Sprintf("Order %s is %s (%s %s)", record.FormID, record.Status, record.Amount.StringFixed(2), record.Currency)
}

// Summary renders the admin mail body.
func Summary(record order.OrderRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Order:    %s\n", record.FormID)
	fmt.Fprintf(&b, "Status:   %s\n", record.Status)
	fmt.Fprintf(&b, "Amount:   %s %s\n", record.Amount.StringFixed(2), record.Currency)
	if record.ProviderPaymentID != nil {
		fmt.Fprintf(&b, "Payment:  %s\n", *record.ProviderPaymentID)
	}
	if record.ProviderDocumentID != nil {
		fmt.Fprintf(&b, "Document: %s\n", *record.ProviderDocumentID)
	}
	fmt.Fprintf(&b, "Received: %s\n", record.ReceivedAt.Format("2006-01-02 15:04:05 MST"))

	if ci := record.CustomerInfo; ci != nil {
		b.WriteString("\nCustomer\n")
		writeField(&b, "Name", ci.Name)
		writeField(&b, "Email", ci.Email)
		writeField(&b, "Phone", ci.Phone)
		address := strings.Join(nonEmpty(ci.Address, ci.City, ci.Zip, ci.Country), ", ")
		writeField(&b, "Address", address)
	}

	if len(record.Items) > 0 {
		b.WriteString("\nItems\n")
		for _, item := range record.Items {
			fmt.Fprintf(&b, "  %d x %s @ %s = %s\n",
				item.Quantity, item.Name, item.UnitPrice.StringFixed(2), item.Total().StringFixed(2))
		}
	}

	if len(record.Warnings) > 0 {
		b.WriteString("\nWarnings\n")
		for _, w := range record.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %-8s %s\n", label+":", value)
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
