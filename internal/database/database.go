package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
)

const (
	pingTimeout        = 5 * time.Second
	slowQueryThreshold = 500 * time.Millisecond
)

// ErrDisabled is returned by Connections.Require when no DSN is configured.
var ErrDisabled = errors.New("database not configured")

// Connections bundles writer and reader bun instances for the orders table.
// Both are nil when no DSN is configured.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

// Enabled reports whether a writer connection exists.
func (c *Connections) Enabled() bool {
	return c != nil && c.Writer != nil
}

// Require returns ErrDisabled for an unconfigured database.
func (c *Connections) Require() error {
	if !c.Enabled() {
		return ErrDisabled
	}
	return nil
}

func (c *Connections) shared() bool { return c.Reader == c.Writer }

// Module registers the database connections with Fx.
var Module = fx.Provide(New)

// driver couples a bun dialect with the database/sql opener for it.
type driver struct {
	dialect func() schema.Dialect
	open    func(dsn string) (*sql.DB, error)
}

// sqlite has a dialect but no registered driver; a build using it must
// blank-import one under the name "sqlite3".
var drivers = map[string]driver{
	"postgres": {
		dialect: func() schema.Dialect { return pgdialect.New() },
		open: func(dsn string) (*sql.DB, error) {
			return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
		},
	},
	"mysql": {
		dialect: func() schema.Dialect { return mysqldialect.New() },
		open:    func(dsn string) (*sql.DB, error) { return sql.Open("mysql", dsn) },
	},
	"sqlite": {
		dialect: func() schema.Dialect { return sqlitedialect.New() },
		open:    func(dsn string) (*sql.DB, error) { return sql.Open("sqlite3", dsn) },
	},
}

// New opens writer and reader pools backed by bun. An empty writer DSN
// yields disabled connections so spreadsheet-only deployments need no database.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	dbCfg := cfg.Database
	if dbCfg.WriterDSN == "" {
		logger.Info("database not configured; orders table unavailable")
		return &Connections{}, nil
	}

	d, err := lookup(dbCfg.Driver)
	if err != nil {
		return nil, err
	}

	writer, err := openDB(d, dbCfg.WriterDSN, dbCfg, logger.With(zap.String("pool", "writer")))
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	conns := &Connections{Writer: writer, Reader: writer}
	if dbCfg.ReaderDSN != "" && dbCfg.ReaderDSN != dbCfg.WriterDSN {
		if conns.Reader, err = openDB(d, dbCfg.ReaderDSN, dbCfg, logger.With(zap.String("pool", "reader"))); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open reader: %w", err)
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ping(ctx, conns.Writer); err != nil {
				return fmt.Errorf("ping writer: %w", err)
			}
			if !conns.shared() {
				if err := ping(ctx, conns.Reader); err != nil {
					return fmt.Errorf("ping reader: %w", err)
				}
			}
			logger.Info("database connected",
				zap.String("driver", dbCfg.Driver),
				zap.Bool("separate_reader", !conns.shared()),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			if conns.shared() {
				return conns.Writer.Close()
			}
			return errors.Join(conns.Writer.Close(), conns.Reader.Close())
		},
	})

	return conns, nil
}

func lookup(name string) (driver, error) {
	d, ok := drivers[name]
	if !ok {
		return driver{}, fmt.Errorf("unsupported database driver: %s", name)
	}
	return d, nil
}

func selectDialect(name string) (schema.Dialect, error) {
	d, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return d.dialect(), nil
}

func openDB(d driver, dsn string, cfg config.Database, logger *zap.Logger) (*bun.DB, error) {
	sqlDB, err := d.open(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	db := bun.NewDB(sqlDB, d.dialect())
	db.AddQueryHook(queryLogger{logger: logger, slow: slowQueryThreshold})
	return db, nil
}

func ping(ctx context.Context, db *bun.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}

// queryLogger reports failed and slow statements. Imports of large
// workbooks issue many batched inserts, so successful fast ones stay quiet.
type queryLogger struct {
	logger *zap.Logger
	slow   time.Duration
}

func (q queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (q queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		q.logger.Warn("query failed",
			zap.String("operation", event.Operation()),
			zap.Duration("elapsed", elapsed),
			zap.Error(event.Err),
		)
	case elapsed >= q.slow:
		q.logger.Warn("slow query",
			zap.String("operation", event.Operation()),
			zap.Duration("elapsed", elapsed),
		)
	}
}
