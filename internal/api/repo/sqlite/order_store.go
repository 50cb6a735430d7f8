// Package sqlite is a single-node durable order store on gorm and SQLite.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/api/domain/order"
	"storefront/pkg/keylock"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ order.OrderStore = (*OrderStore)(nil)

type orderModel struct {
	Seq                uint64              `gorm:"primaryKey;autoIncrement"`
	FormID             string              `gorm:"uniqueIndex;not null"`
	Status             string              `gorm:"index;not null"`
	Amount             decimal.Decimal     `gorm:"type:text;not null"`
	Currency           string              `gorm:"size:3;not null"`
	CustomerInfo       *order.CustomerInfo `gorm:"serializer:json"`
	Items              []order.Item        `gorm:"serializer:json"`
	ProviderDocumentID *string
	ProviderPaymentID  *string
	Warnings           []string  `gorm:"serializer:json"`
	RawPayloadDigest   string    `gorm:"not null"`
	ReceivedAt         time.Time `gorm:"not null;autoCreateTime:false"`
	ChangedAt          time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (orderModel) TableName() string {
	return "orders"
}

func fromRecord(rec order.OrderRecord) orderModel {
	return orderModel{
		FormID:             rec.FormID,
		Status:             string(rec.Status),
		Amount:             rec.Amount,
		Currency:           rec.Currency,
		CustomerInfo:       rec.CustomerInfo,
		Items:              rec.Items,
		ProviderDocumentID: rec.ProviderDocumentID,
		ProviderPaymentID:  rec.ProviderPaymentID,
		Warnings:           rec.Warnings,
		RawPayloadDigest:   rec.RawPayloadDigest,
		ReceivedAt:         rec.ReceivedAt,
		ChangedAt:          rec.UpdatedAt,
	}
}

func (m orderModel) toDomain() (order.OrderRecord, error) {
	status, err := order.NewStatus(m.Status)
	if err != nil {
		return order.OrderRecord{}, fmt.Errorf("invalid status in database: %w", err)
	}
	items := m.Items
	if items == nil {
		items = []order.Item{}
	}
	var warnings []string
	if len(m.Warnings) > 0 {
		warnings = m.Warnings
	}
	return order.OrderRecord{
		FormID:             m.FormID,
		Status:             status,
		Amount:             m.Amount,
		Currency:           m.Currency,
		CustomerInfo:       m.CustomerInfo,
		Items:              items,
		ProviderDocumentID: m.ProviderDocumentID,
		ProviderPaymentID:  m.ProviderPaymentID,
		Warnings:           warnings,
		RawPayloadDigest:   m.RawPayloadDigest,
		ReceivedAt:         m.ReceivedAt.UTC(),
		UpdatedAt:          m.ChangedAt.UTC(),
	}, nil
}

// Open opens (creating if needed) the database file at path and migrates the
// orders table. Transactions start with BEGIN IMMEDIATE so a read-then-write
// sequence cannot fail on lock upgrade.
func Open(path string) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite - Open - gorm.Open: %w", err)
	}
	if err := db.AutoMigrate(&orderModel{}); err != nil {
		return nil, fmt.Errorf("sqlite - Open - AutoMigrate: %w", err)
	}
	return db, nil
}

type OrderStore struct {
	db    *gorm.DB
	locks *keylock.Locker
	store
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{
		db:    db,
		locks: keylock.New(),
		store: store{db: db},
	}
}

// InTransaction queues same-form callers in process before opening the
// database transaction.
func (s *OrderStore) InTransaction(ctx context.Context, formID string, fn func(tx order.TxOrderStore) error) error {
	unlock := s.locks.Lock(formID)
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

type store struct {
	db *gorm.DB
}

func (s *store) Get(ctx context.Context, formID string) (*order.OrderRecord, error) {
	var m orderModel
	err := s.db.WithContext(ctx).Where("form_id = ?", formID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	rec, err := m.toDomain()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func filterStatuses(q *gorm.DB, query *order.ListQuery) *gorm.DB {
	if query == nil || len(query.Statuses) == 0 {
		return q
	}
	statuses := make([]string, len(query.Statuses))
	for i, st := range query.Statuses {
		statuses[i] = string(st)
	}
	return q.Where("status IN ?", statuses)
}

func (s *store) List(ctx context.Context, query *order.ListQuery) ([]order.OrderRecord, error) {
	q := filterStatuses(s.db.WithContext(ctx).Order("seq ASC"), query)
	if query != nil && query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var models []orderModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	records := make([]order.OrderRecord, 0, len(models))
	for _, m := range models {
		rec, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *store) Count(ctx context.Context, query *order.ListQuery) (int, error) {
	var n int64
	if err := filterStatuses(s.db.WithContext(ctx).Model(&orderModel{}), query).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return int(n), nil
}

func (s *store) Create(ctx context.Context, rec order.OrderRecord) error {
	m := fromRecord(rec)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return order.ErrAlreadyExists
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *store) UpdateStatus(ctx context.Context, formID string, status order.Status, updatedAt time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("form_id = ?", formID).
		Updates(map[string]any{"status": string(status), "updated_at": updatedAt})
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return order.ErrNotFound
	}
	return nil
}
