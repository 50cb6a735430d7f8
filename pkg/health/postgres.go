package health

import (
	"context"
	"database/sql"
)

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports a component as up when Ping succeeds.
type PingChecker struct {
	name   string
	pinger Pinger
}

// NewPostgresChecker checks PostgreSQL connectivity through the pgx pool.
func NewPostgresChecker(pool Pinger) *PingChecker {
	return &PingChecker{name: "postgres", pinger: pool}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) Result {
	if err := c.pinger.Ping(ctx); err != nil {
		return Result{Status: StatusDown, Message: err.Error()}
	}
	return Result{Status: StatusUp}
}

type sqlPinger struct{ db *sql.DB }

func (p sqlPinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// NewSQLChecker checks a database/sql handle, e.g. the gorm SQLite store.
func NewSQLChecker(name string, db *sql.DB) *PingChecker {
	return &PingChecker{name: name, pinger: sqlPinger{db: db}}
}
