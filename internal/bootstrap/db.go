package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GoSim-25-26J-441/marketplace-core/config"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/storage/postgres"
)

// Databases holds both handles to the same Postgres: the pgx pool for the
// currency store and database/sql for the profile store.
type Databases struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// OpenDatabases connects, pings and migrates.
func OpenDatabases(ctx context.Context, cfg *config.DatabaseConfig) (*Databases, error) {
	if cfg.DSN == "" && cfg.Host == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	sqlDB, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Databases{Pool: pool, SQL: sqlDB}, nil
}

func (d *Databases) Close() {
	if d.SQL != nil {
		_ = d.SQL.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}
