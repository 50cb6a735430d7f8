package order_repo

import (
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/api/domain/order"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// orderRow mirrors the orders table. JSON columns travel as raw bytes.
type orderRow struct {
	FormID             string
	Status             string
	Amount             string
	Currency           string
	CustomerInfo       []byte
	Items              []byte
	ProviderDocumentID *string
	ProviderPaymentID  *string
	Warnings           []byte
	RawPayloadDigest   string
	ReceivedAt         time.Time
	UpdatedAt          time.Time
}

func toRow(rec order.OrderRecord) (orderRow, error) {
	row := orderRow{
		FormID:             rec.FormID,
		Status:             string(rec.Status),
		Amount:             rec.Amount.String(),
		Currency:           rec.Currency,
		ProviderDocumentID: rec.ProviderDocumentID,
		ProviderPaymentID:  rec.ProviderPaymentID,
		RawPayloadDigest:   rec.RawPayloadDigest,
		ReceivedAt:         rec.ReceivedAt,
		UpdatedAt:          rec.UpdatedAt,
	}

	var err error
	if rec.CustomerInfo != nil {
		if row.CustomerInfo, err = json.Marshal(rec.CustomerInfo); err != nil {
			return orderRow{}, fmt.Errorf("marshal customer info: %w", err)
		}
	}
	items := rec.Items
	if items == nil {
		items = []order.Item{}
	}
	if row.Items, err = json.Marshal(items); err != nil {
		return orderRow{}, fmt.Errorf("marshal items: %w", err)
	}
	warnings := rec.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	if row.Warnings, err = json.Marshal(warnings); err != nil {
		return orderRow{}, fmt.Errorf("marshal warnings: %w", err)
	}
	return row, nil
}

func (r orderRow) toDomain() (order.OrderRecord, error) {
	status, err := order.NewStatus(r.Status)
	if err != nil {
		return order.OrderRecord{}, fmt.Errorf("invalid status in database: %w", err)
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return order.OrderRecord{}, fmt.Errorf("invalid amount in database: %w", err)
	}

	rec := order.OrderRecord{
		FormID:             r.FormID,
		Status:             status,
		Amount:             amount,
		Currency:           r.Currency,
		Items:              []order.Item{},
		ProviderDocumentID: r.ProviderDocumentID,
		ProviderPaymentID:  r.ProviderPaymentID,
		RawPayloadDigest:   r.RawPayloadDigest,
		ReceivedAt:         r.ReceivedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if len(r.CustomerInfo) > 0 {
		rec.CustomerInfo = &order.CustomerInfo{}
		if err := json.Unmarshal(r.CustomerInfo, rec.CustomerInfo); err != nil {
			return order.OrderRecord{}, fmt.Errorf("decode customer info: %w", err)
		}
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &rec.Items); err != nil {
			return order.OrderRecord{}, fmt.Errorf("decode items: %w", err)
		}
	}
	if len(r.Warnings) > 0 {
		if err := json.Unmarshal(r.Warnings, &rec.Warnings); err != nil {
			return order.OrderRecord{}, fmt.Errorf("decode warnings: %w", err)
		}
		if len(rec.Warnings) == 0 {
			rec.Warnings = nil
		}
	}
	return rec, nil
}

func parseOrderRow(row pgx.Row) (order.OrderRecord, error) {
	var r orderRow
	err := row.Scan(
		&r.FormID,
		&r.Status,
		&r.Amount,
		&r.Currency,
		&r.CustomerInfo,
		&r.Items,
		&r.ProviderDocumentID,
		&r.ProviderPaymentID,
		&r.Warnings,
		&r.RawPayloadDigest,
		&r.ReceivedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return order.OrderRecord{}, err
	}
	return r.toDomain()
}

func parseOrderRows(rows pgx.Rows) ([]order.OrderRecord, error) {
	records := []order.OrderRecord{}
	for rows.Next() {
		rec, err := parseOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return records, nil
}
