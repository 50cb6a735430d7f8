package api

import (
	"fmt"
	"log/slog"

	"storefront/config"
	"storefront/internal/api/domain/order"
	"storefront/internal/api/repo/memory"
	order_repo "storefront/internal/api/repo/order"
	"storefront/internal/api/repo/sqlite"
	"storefront/pkg/health"
	"storefront/pkg/postgres"
)

// openStore builds the configured order store and registers its readiness
// check. The returned func releases it.
func openStore(cfg config.Config, registry *health.Registry) (order.OrderStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := postgres.New(cfg.PgURL, postgres.MaxPoolSize(cfg.PgPoolMax))
		if err != nil {
			return nil, nil, fmt.Errorf("api - openStore - postgres.New: %w", err)
		}
		if err := ApplyMigrations(cfg.PgURL, MIGRATION_FS); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("api - openStore - ApplyMigrations: %w", err)
		}
		registry.Register(health.NewPostgresChecker(pg.Pool))
		return order_repo.NewPgOrderRepo(pg), pg.Close, nil

	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("api - openStore - sqlite.Open: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("api - openStore - sqlite handle: %w", err)
		}
		registry.Register(health.NewSQLChecker("sqlite", sqlDB))
		return sqlite.NewOrderStore(db), func() { _ = sqlDB.Close() }, nil

	case config.StoreMemory:
		slog.Warn("Using in-memory order store, records are lost on restart")
		return memory.NewOrderStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("api - openStore: unsupported store driver %q", cfg.StoreDriver)
	}
}
