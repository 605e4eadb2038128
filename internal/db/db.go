// Package db opens the database, applies migrations and seeds the bootstrap account.
package db

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/sheet-invoices/internal/config"
)

const connectAttempts = 10

var passwordPattern = regexp.MustCompile(`(password=|://[^:/]+:)([^\s@]+)`)

// MaskDSN hides the password in a DSN for logging.
func MaskDSN(dsn string) string {
	return passwordPattern.ReplaceAllString(dsn, `${1}***`)
}

// Open connects using the configured driver. Postgres connections are retried
// to give the database container time to start.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Timestamps are stored in UTC so range queries compare consistently on every driver.
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	dsn := cfg.DSN()
	log.Infof("Connecting to %s database: %s", cfg.Driver, MaskDSN(dsn))

	switch cfg.Driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(sqliteDSN(dsn)), gcfg)
	case "postgres":
		var db *gorm.DB
		var err error
		for i := 0; i < connectAttempts; i++ {
			db, err = gorm.Open(postgres.Open(dsn), gcfg)
			if err == nil {
				break
			}
			log.Warnf("Database connection attempt %d/%d failed: %v", i+1, connectAttempts, err)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, fmt.Errorf("connect database after retries: %w", err)
		}
		if err := db.Exec("SELECT 1").Error; err != nil {
			return nil, fmt.Errorf("db ping failed: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN enables foreign key enforcement so ON DELETE rules apply.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}
