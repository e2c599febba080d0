package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"groupride/internal/app"
	"groupride/internal/config"
	"groupride/internal/repository/postgres"
)

func newMigrateCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Applies the embedded SQL migrations that are not yet recorded in
schema_migrations. Safe to run multiple times (idempotent).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runMigrate(ctx, cmd.OutOrStdout(), config.Load())
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "maximum time to spend migrating")
	return cmd
}

func runMigrate(ctx context.Context, out io.Writer, cfg *config.Config) error {
	db, err := app.NewDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer db.Close()

	applied, err := postgres.Migrate(ctx, db)
	for _, v := range applied {
		fmt.Fprintf(out, "applied %s\n", v)
	}
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		fmt.Fprintln(out, "schema up to date")
	}
	return nil
}
