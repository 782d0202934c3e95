package database

import (
	"context"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// MigrationRunner applies the catalog and analysis schema migrations.
// The server runs Up on startup before accepting uploads.
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner builds a runner over a file:// migration source.
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("creating migration runner: %w", err)
	}

	return &MigrationRunner{
		migrate: m,
		log:     logger,
	}, nil
}

// run executes one migration step function, stopping at the next migration
// boundary if ctx is cancelled first.
func (r *MigrationRunner) run(ctx context.Context, step func() error) error {
	done := make(chan error, 1)
	go func() { done <- step() }()

	select {
	case <-ctx.Done():
		r.migrate.GracefulStop <- true
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Up applies all pending migrations.
func (r *MigrationRunner) Up(ctx context.Context) error {
	r.log.Info("Applying catalog schema migrations")

	if err := r.run(ctx, r.migrate.Up); err != nil {
		if err == migrate.ErrNoChange {
			r.log.Info("Catalog schema already current")
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	r.logVersion("Catalog schema migrated")
	return nil
}

// Down rolls back the most recent migration.
func (r *MigrationRunner) Down(ctx context.Context) error {
	r.log.Info("Rolling back one schema migration")

	if err := r.run(ctx, func() error { return r.migrate.Steps(-1) }); err != nil {
		if err == migrate.ErrNoChange {
			r.log.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("rolling back migration: %w", err)
	}

	r.logVersion("Schema migration rolled back")
	return nil
}

func (r *MigrationRunner) logVersion(message string) {
	version, dirty, err := r.migrate.Version()
	if err != nil {
		r.log.WithError(err).Warn("Could not read migration version")
		return
	}
	r.log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info(message)
}

// Version reports the current migration version and dirty flag.
func (r *MigrationRunner) Version() (uint, bool, error) {
	return r.migrate.Version()
}

// Close releases the migration source and database handles.
func (r *MigrationRunner) Close() error {
	sourceErr, dbErr := r.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
