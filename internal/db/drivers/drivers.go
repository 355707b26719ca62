// Package drivers opens a db.DB for a configured backend.
package drivers

import (
	"context"
	"fmt"

	"github.com/bgunnarsson/sqlkit/internal/config"
	"github.com/bgunnarsson/sqlkit/internal/db"
	"github.com/bgunnarsson/sqlkit/internal/db/mssql"
	"github.com/bgunnarsson/sqlkit/internal/db/mysql"
	"github.com/bgunnarsson/sqlkit/internal/db/postgres"
	"github.com/bgunnarsson/sqlkit/internal/db/sqlite"
)

// central factory
func Open(ctx context.Context, cfg config.DB) (db.DB, error) {
	dsn := DSN(cfg)
	switch cfg.Driver {
	case "", config.DriverSqlite:
		return opened(sqlite.Open(ctx, dsn))
	case config.DriverPostgres:
		return opened(postgres.Open(ctx, dsn))
	case config.DriverMssql:
		return opened(mssql.Open(ctx, dsn))
	case config.DriverMysql:
		return opened(mysql.Open(ctx, dsn))
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// opened keeps a failed open from yielding a non-nil interface holding nil.
func opened[T db.DB](d T, err error) (db.DB, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DSN returns cfg.DSN, or one assembled from the discrete settings.
func DSN(cfg config.DB) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.DSN(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)
	case config.DriverMssql:
		return mssql.DSN(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)
	case config.DriverMysql:
		return mysql.DSN(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)
	default:
		// sqlite: the database name is the file path
		return cfg.Database
	}
}
