package repository

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	migrationsDir = "data/sql/migrations"
)

// Config is the persistence configuration handed to go-persistence-bun
type Config struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

func (c Config) GetDebug() bool {
	return c.Debug
}

func (c Config) GetDriver() string {
	return c.Driver
}

func (c Config) GetServer() string {
	return c.DSN
}

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string {
	return ""
}

var registerModels sync.Once

// Open connects to sqlite or postgres, applies the embedded migrations for
// that dialect and returns the bun handle
func Open(ctx context.Context, cfg Config, logger glog.Logger) (*bun.DB, error) {
	sqldb, dialect, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}

	registerModels.Do(func() {
		persistence.RegisterModel((*accounts.User)(nil))
		persistence.RegisterModel((*accounts.RefreshToken)(nil))
	})

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create persistence client")
	}
	client.SetLogger(logger)

	migrations, err := fs.Sub(GetMigrationsFS(), migrationsDir)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel(migrationsDir),
		persistence.WithValidationTargets(DriverPostgres, DriverSQLite),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invalid migrations")
	}

	if err := client.Migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to migrate "+cfg.Driver)
	}

	return client.DB(), nil
}

func openSQL(cfg Config) (*sql.DB, schema.Dialect, error) {
	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite")
		}
		if strings.Contains(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory") {
			sqldb.SetMaxOpenConns(1)
		}
		return sqldb, sqlitedialect.New(), nil
	case DriverPostgres:
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres")
		}
		return sqldb, pgdialect.New(), nil
	default:
		return nil, nil, goerrors.New("unsupported sql driver: "+cfg.Driver, goerrors.CategoryBadInput)
	}
}
