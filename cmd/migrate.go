package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/store/factory"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
		Long: `Apply the SQL migrations with goose on Postgres. On the sqlite driver the
schema is created from the row models instead.`,
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db := cfg.Store.Database
	if db.Source == "" {
		return errors.New("store.database.source is not configured")
	}

	if db.Driver == factory.DriverSQLite {
		return autoMigrate(ctx, cfg)
	}

	conn, err := goose.OpenDBWithDriver("pgx", db.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer conn.Close()
	goose.SetTableName("schema_migrations")

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, conn, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func autoMigrate(ctx context.Context, cfg *internal.Config) error {
	if migrateRollback {
		return errors.New("rollback is not supported on the sqlite driver")
	}
	storeCfg := cfg.Store
	storeCfg.Remote = internal.RemoteStoreConfig{}
	storeCfg.Database.AutoMigrate = true

	lg := logger.LoggerWrapper()
	handle, err := factory.Open(ctx, storeCfg, lg)
	if err != nil {
		return err
	}
	lg.Info("schema migrated", "driver", factory.DriverSQLite)
	return handle.Close()
}
