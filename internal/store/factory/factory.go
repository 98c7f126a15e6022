// Package factory builds the single store adapter a process runs with.
package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/store"
	"github.com/frahmantamala/ops-portal/internal/store/null"
	"github.com/frahmantamala/ops-portal/internal/store/postgres"
	"github.com/frahmantamala/ops-portal/internal/store/remote"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Handle is the opened store. DB and SQL are nil unless the SQL variant runs.
type Handle struct {
	Adapter store.Adapter
	SQL     *postgres.Adapter
	DB      *sqlx.DB
}

func (h *Handle) Variant() store.Variant { return h.Adapter.Variant() }

// Ping checks the database connection. Variants without one report healthy.
func (h *Handle) Ping(ctx context.Context) error {
	if h.DB == nil {
		return nil
	}
	return h.DB.PingContext(ctx)
}

func (h *Handle) Close() error {
	if h.DB == nil {
		return nil
	}
	return h.DB.Close()
}

// Open selects the variant from cfg and connects it. It runs once at startup.
func Open(ctx context.Context, cfg internal.StoreConfig, logger *slog.Logger, opts ...postgres.Option) (*Handle, error) {
	variant := store.Select(store.Credentials{
		RemoteBaseID:   cfg.Remote.BaseID,
		RemoteToken:    cfg.Remote.Token,
		DatabaseSource: cfg.Database.Source,
	})

	switch variant {
	case store.VariantRemote:
		adapter := remote.NewAdapter(remote.Config{
			BaseURL:        cfg.Remote.BaseURL,
			BaseID:         cfg.Remote.BaseID,
			Token:          cfg.Remote.Token,
			WritableTables: cfg.Remote.WritableTables,
			Timeout:        cfg.Remote.RequestTimeout,
		}, logger, uuid.NewString)
		logger.Info("store selected", "variant", variant, "base_id", cfg.Remote.BaseID, "writable_tables", cfg.Remote.WritableTables)
		return &Handle{Adapter: adapter}, nil

	case store.VariantSQL:
		db, gdb, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.AutoMigrate(gdb.WithContext(ctx)); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
		}
		adapter := postgres.NewAdapter(gdb, logger, opts...)
		logger.Info("store selected", "variant", variant, "driver", driverOf(cfg.Database))
		return &Handle{Adapter: adapter, SQL: adapter, DB: db}, nil

	default:
		logger.Warn("no store configured; reads are empty and writes are not implemented", "variant", variant)
		return &Handle{Adapter: null.NewAdapter()}, nil
	}
}

func driverOf(cfg internal.DatabaseConfig) string {
	if cfg.Driver == "" {
		return DriverPostgres
	}
	return cfg.Driver
}

func openDatabase(ctx context.Context, cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}

	var (
		db  *sqlx.DB
		gdb *gorm.DB
		err error
	)
	switch driverOf(cfg) {
	case DriverPostgres:
		db, err = sqlx.ConnectContext(ctx, "pgx", cfg.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
		}
		gdb, err = gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), gcfg)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to open gorm session: %w", err)
		}
	case DriverSQLite:
		gdb, err = gorm.Open(sqlite.Open(cfg.Source), gcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		db = sqlx.NewDb(sqlDB, "sqlite3")
	default:
		return nil, nil, errors.New("unsupported database driver " + cfg.Driver)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, gdb, nil
}
