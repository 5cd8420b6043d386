package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/sublease-marketplace/internal/persistence/sqlstore"
)

func migrateCommand(rt *runtime) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if statusOnly {
				return printMigrationStatus(cmd.Context(), cmd.OutOrStdout(), rt.cfg.DatabaseDSN, rt.logger)
			}
			return runMigrations(cmd.Context(), rt.cfg.DatabaseDSN, rt.logger)
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "report applied and pending migrations without applying them")
	return cmd
}

func runMigrations(ctx context.Context, dsn string, logger *slog.Logger) error {
	store, err := sqlstore.Open(ctx, dsn, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to apply migrations", "error", err)
		return err
	}
	return nil
}

func printMigrationStatus(ctx context.Context, out io.Writer, dsn string, logger *slog.Logger) error {
	store, err := sqlstore.Open(ctx, dsn, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	status, err := store.MigrationStatus(ctx)
	if err != nil {
		return err
	}

	current := status.CurrentVersion
	if current == "" {
		current = "none"
	}
	fmt.Fprintf(out, "current version: %s\n", current)
	fmt.Fprintf(out, "applied: %d\n", len(status.AppliedMigrations))
	fmt.Fprintf(out, "pending: %d\n", status.PendingCount)
	for _, m := range status.PendingMigrations {
		fmt.Fprintf(out, "  %s\n", m.Version)
	}
	return nil
}
