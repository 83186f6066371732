package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-advisor/internal/persistence"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Embed the bundled KB articles and load them into the configured backend",
	Long: `Seed the knowledge base selected by KB_BACKEND.

Postgres migrations are applied first when POSTGRES_RUN_MIGRATIONS is set.
Seeding the memory backend only checks that embedding works, since the
store does not outlive the process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if rt.pg.Enabled() && rt.cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, rt.pg.PoolHandle(), rt.cfg.Postgres.MigrationsDir, rt.logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}

		n, err := rt.stack.Seed(ctx, rt.logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d articles into %s\n", n, rt.stack.Store.Name())
		return nil
	},
}
