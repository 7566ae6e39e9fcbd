package persistence

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"whitecoat/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one embedded schema change, parsed from its filename.
// Files follow "001_initial_schema.sql": numeric version, then a
// description with underscores.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus pairs an available migration with its applied state.
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
}

// MigrationManager applies embedded SQL migrations against Postgres,
// tracking progress in a schema_migrations table.
type MigrationManager struct {
	db  *PostgresDB
	log *slog.Logger
}

func NewMigrationManager(db *PostgresDB) *MigrationManager {
	return &MigrationManager{db: db, log: logger.Get()}
}

// Migrate applies every migration not yet recorded, in version order.
func (m *MigrationManager) Migrate(ctx context.Context) error {
	available, applied, err := m.inventory(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, mig := range available {
		if !applied[mig.Version] {
			pending = append(pending, mig)
		}
	}
	if len(pending) == 0 {
		m.log.Info("Database schema is up to date")
		return nil
	}

	m.log.Info("Applying pending migrations", "count", len(pending))
	for _, mig := range pending {
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Description, err)
		}
	}

	m.log.Info("Migrations applied", "count", len(pending))
	return nil
}

// Status reports every available migration and whether it has run.
func (m *MigrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	available, applied, err := m.inventory(ctx)
	if err != nil {
		return nil, err
	}

	status := make([]MigrationStatus, 0, len(available))
	for _, mig := range available {
		status = append(status, MigrationStatus{
			Version:     mig.Version,
			Description: mig.Description,
			Applied:     applied[mig.Version],
		})
	}
	return status, nil
}

// inventory ensures the tracking table exists and returns the embedded
// migrations alongside the set of already-applied versions.
func (m *MigrationManager) inventory(ctx context.Context) ([]Migration, map[int]bool, error) {
	_, err := m.db.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	rows, err := m.db.db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, nil, err
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	available, err := m.loadEmbedded()
	if err != nil {
		return nil, nil, err
	}
	return available, applied, nil
}

func (m *MigrationManager) loadEmbedded() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		prefix, rest, found := strings.Cut(name, "_")
		if !found {
			m.log.Warn("Skipping migration with unparseable name", "file", name)
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			m.log.Warn("Skipping migration with non-numeric version", "file", name)
			continue
		}

		content, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(strings.TrimSuffix(rest, ".sql"), "_", " "),
			SQL:         string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// apply runs one migration and records it, all inside a transaction.
func (m *MigrationManager) apply(ctx context.Context, mig Migration) error {
	m.log.Info("Applying migration", "version", mig.Version, "description", mig.Description)

	tx, err := m.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	// Migration files may insert their own schema_migrations row; this
	// covers the ones that don't.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, description)
		VALUES ($1, $2)
		ON CONFLICT (version) DO NOTHING
	`, mig.Version, mig.Description)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
