package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corvid-labs/blueprint-engine/eventbus/postgres"
	"github.com/corvid-labs/blueprint-engine/internal/config"
	"github.com/corvid-labs/blueprint-engine/store/postgrespool"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the durable backends' tables if they do not already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Bus.Engine == "postgres" {
		pool, err := connectPostgres(ctx, cfg.Bus.Postgres)
		if err != nil {
			return fmt.Errorf("connect bus postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.New(pool).Migrate(ctx); err != nil {
			return fmt.Errorf("migrate event bus: %w", err)
		}
	}

	if cfg.Store.Engine == "postgres" {
		pool, err := connectPostgres(ctx, cfg.Store.Postgres)
		if err != nil {
			return fmt.Errorf("connect store postgres: %w", err)
		}
		defer pool.Close()
		if err := postgrespool.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate execution store: %w", err)
		}
	}

	return nil
}
