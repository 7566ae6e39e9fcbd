package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"whitecoat/internal/logger"
	"whitecoat/internal/persistence"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage database schema migrations.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status

The migration system tracks applied migrations in the schema_migrations table
and applies new migrations in sequential order.

Examples:
  # Apply all pending migrations
  whitecoat migrate up

  # Check migration status
  whitecoat migrate status`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Long: `Apply all pending database migrations.

This command will:
  • Create schema_migrations table if it doesn't exist
  • Check which migrations have been applied
  • Apply all pending migrations in order
  • Record each migration in schema_migrations

Migrations are applied in a transaction and will rollback on failure.

Example:
  whitecoat migrate up`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context())
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long: `Show the status of all migrations.

Displays which migrations have been applied and which are pending.

Example:
  whitecoat migrate status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context())
		},
	}
}

func runMigrateUp(ctx context.Context) error {
	log := logger.Get()
	log.Info("Starting database migration")

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	pgDB, ok := db.(*persistence.PostgresDB)
	if !ok {
		return fmt.Errorf("only PostgreSQL database is supported for migrations")
	}

	migrator := persistence.NewMigrationManager(pgDB)

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("All migrations applied successfully")
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	pgDB, ok := db.(*persistence.PostgresDB)
	if !ok {
		return fmt.Errorf("only PostgreSQL database is supported for migrations")
	}

	migrator := persistence.NewMigrationManager(pgDB)

	status, err := migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(status) == 0 {
		fmt.Println("No migrations found")
		return nil
	}

	fmt.Printf("%-10s %-10s %s\n", "Version", "Status", "Description")

	appliedCount := 0
	pendingCount := 0

	for _, m := range status {
		statusStr := "pending"
		if m.Applied {
			statusStr = "applied"
			appliedCount++
		} else {
			pendingCount++
		}

		fmt.Printf("%-10d %-10s %s\n", m.Version, statusStr, m.Description)
	}

	fmt.Println()
	fmt.Printf("Applied: %d | Pending: %d | Total: %d\n", appliedCount, pendingCount, len(status))

	if pendingCount > 0 {
		fmt.Println("\nRun 'whitecoat migrate up' to apply pending migrations")
	}

	return nil
}
