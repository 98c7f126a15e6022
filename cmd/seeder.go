package cmd

import (
	"errors"
	"fmt"

	"github.com/frahmantamala/ops-portal/internal/store/factory"
	"github.com/frahmantamala/ops-portal/internal/store/postgres"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the demo data",
	Long: `Seed the database with the demo accounts, tools, requests and ledger rows.
An already populated database is left alone unless --clear is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		lg := logger.LoggerWrapper()
		handle, err := factory.Open(ctx, cfg.Store, lg, postgres.WithBCryptCost(cfg.Security.BCryptCost))
		if err != nil {
			return err
		}
		defer handle.Close()

		if handle.SQL == nil {
			return errors.New("seeding needs a database store; configure store.database.source")
		}

		out := cmd.OutOrStdout()
		if clearData {
			if err := handle.SQL.ResetDemoData(ctx); err != nil {
				return fmt.Errorf("failed to reset demo data: %w", err)
			}
			fmt.Fprintln(out, "Demo data reset.")
			return nil
		}

		seeded, err := handle.SQL.SeedDemoData(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		if !seeded {
			fmt.Fprintln(out, "Database already has users; nothing seeded (use --clear to replace).")
			return nil
		}
		fmt.Fprintf(out, "Seeded demo data. Accounts admin@, finance@, ops@, employee@ and intern@creoo.co use password %q.\n", postgres.DemoPassword)
		return nil
	},
}
