package commands

import (
	"context"
	"fmt"

	"github.com/reporthere/reporthere/internal/logger"
	postgresstore "github.com/reporthere/reporthere/internal/store/postgres"
)

// MigrateCmd runs pending database migrations and exits.
type MigrateCmd struct {
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	if err := c.PostgresStore.Validate(); err != nil {
		return err
	}

	pool, err := postgresstore.NewPool(ctx, &postgresstore.Config{
		ConnString: c.PostgresStore.ConnString,
		MaxConns:   2,
		MinConns:   1,
	})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pool.Close()

	if err := postgresstore.RunMigrations(ctx, pool); err != nil {
		return err
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
