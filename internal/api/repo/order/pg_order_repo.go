package order_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/api/domain/order"
	"storefront/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var _ order.OrderStore = (*PgOrderRepo)(nil)

// Database is the subset of *pgxpool.Pool the repository needs.
type Database interface {
	postgres.Executor
	postgres.TxStarter
}

// PgOrderRepo is the durable order store. Per-form atomicity comes from a
// transaction-scoped advisory lock keyed by the form id, so transactions on
// different forms never wait on each other.
type PgOrderRepo struct {
	db Database
	repo
}

func NewPgOrderRepo(pg *postgres.Postgres) *PgOrderRepo {
	return newPgOrderRepo(pg.Pool, pg.Builder)
}

func newPgOrderRepo(db Database, builder squirrel.StatementBuilderType) *PgOrderRepo {
	return &PgOrderRepo{
		db:   db,
		repo: repo{db: db, builder: builder},
	}
}

const lockFormSQL = "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))"

func (r *PgOrderRepo) InTransaction(ctx context.Context, formID string, fn func(tx order.TxOrderStore) error) error {
	err := postgres.InTransaction(ctx, r.db, func(tx postgres.Executor) error {
		if _, err := tx.Exec(ctx, lockFormSQL, formID); err != nil {
			return fmt.Errorf("lock form %s: %w", formID, err)
		}
		return fn(&repo{db: tx, builder: r.builder})
	})
	if err != nil && postgres.IsConnectionError(err) {
		return fmt.Errorf("%w: %w", order.ErrStoreUnavailable, err)
	}
	return err
}

type repo struct {
	db      postgres.Executor
	builder squirrel.StatementBuilderType
}

var orderColumns = []string{
	"form_id",
	"status",
	"amount::text AS amount",
	"currency",
	"customer_info",
	"items",
	"provider_document_id",
	"provider_payment_id",
	"warnings",
	"raw_payload_digest",
	"received_at",
	"updated_at",
}

func (r *repo) Get(ctx context.Context, formID string) (*order.OrderRecord, error) {
	query, args, err := r.builder.Select(orderColumns...).
		From("orders").
		Where(squirrel.Eq{"form_id": formID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rec, err := parseOrderRow(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &rec, nil
}

func (r *repo) List(ctx context.Context, q *order.ListQuery) ([]order.OrderRecord, error) {
	query, args, err := r.buildListQuery(q)
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	return parseOrderRows(rows)
}

func (r *repo) Count(ctx context.Context, q *order.ListQuery) (int, error) {
	query, args, err := filterStatuses(r.builder.Select("COUNT(*)").From("orders"), q).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *repo) Create(ctx context.Context, rec order.OrderRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	query, args, err := r.builder.Insert("orders").
		Columns(
			"form_id", "status", "amount", "currency", "customer_info", "items",
			"provider_document_id", "provider_payment_id", "warnings",
			"raw_payload_digest", "received_at", "updated_at",
		).
		Values(
			row.FormID, row.Status, squirrel.Expr("?::numeric", row.Amount), row.Currency,
			row.CustomerInfo, row.Items, row.ProviderDocumentID, row.ProviderPaymentID,
			row.Warnings, row.RawPayloadDigest, row.ReceivedAt, row.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		if postgres.IsPgErrorUniqueViolation(err) {
			return order.ErrAlreadyExists
		}
		if postgres.IsDataError(err) {
			return fmt.Errorf("%w: create order: %w", order.ErrConflict, err)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, formID string, status order.Status, updatedAt time.Time) error {
	query, args, err := r.builder.Update("orders").
		Set("status", string(status)).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"form_id": formID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if postgres.IsDataError(err) {
			return fmt.Errorf("%w: update order status: %w", order.ErrConflict, err)
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *repo) buildListQuery(q *order.ListQuery) (string, []any, error) {
	query := filterStatuses(r.builder.Select(orderColumns...).From("orders"), q).
		OrderBy("seq ASC")

	if q != nil && q.Limit > 0 {
		query = query.Limit(uint64(q.Limit))
	}

	return query.ToSql()
}

func filterStatuses(query squirrel.SelectBuilder, q *order.ListQuery) squirrel.SelectBuilder {
	if q == nil || len(q.Statuses) == 0 {
		return query
	}
	statuses := make([]string, len(q.Statuses))
	for i, s := range q.Statuses {
		statuses[i] = string(s)
	}
	return query.Where(squirrel.Eq{"status": statuses})
}
