package db

import (
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/config"
	"github.com/diewo77/sheet-invoices/internal/models"
)

// MigrationsDir is where the versioned SQL migrations live.
var MigrationsDir = "migrations"

var requiredTables = []string{"users", "companies", "line_item_templates", "invoices", "invoice_details"}

// Migrate brings the schema up to date. With MIGRATIONS enabled on postgres the
// versioned SQL files are applied; otherwise gorm AutoMigrate is used.
func Migrate(db *gorm.DB, cfg *config.Config) error {
	if cfg.App.Migrations && cfg.Database.Driver == "postgres" {
		log.Infof("Applying SQL migrations from %s", MigrationsDir)
		if err := runSQLMigrations(cfg.Database.MigrateURL()); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range models.All() {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// runSQLMigrations executes migrations in MigrationsDir using the golang-migrate file source.
func runSQLMigrations(url string) error {
	m, err := migrate.New("file://"+MigrationsDir, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, verr := m.Version()
	if verr == nil {
		log.Infof("Schema at version %d (dirty=%v)", version, dirty)
	}
	return nil
}
