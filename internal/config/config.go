// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for containers without one
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Log       LogConfig
	Storage   StorageConfig
	Session   SessionConfig
	Limits    LimitsConfig
	Bootstrap BootstrapConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds connection settings. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver   string
	URL      string // full DSN, takes precedence over the discrete fields
	Path     string // sqlite file
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Debug    bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	Seed       bool
	Timezone   string
}

// LogConfig controls the subsystem loggers.
type LogConfig struct {
	Level string
	Dir   string
}

// StorageConfig locates the invoice template and the generated files.
type StorageConfig struct {
	TemplatePath  string
	OutputDir     string
	LayoutFile    string
	RetentionDays int
}

// SessionConfig holds cookie signing secrets.
type SessionConfig struct {
	Secret  string
	CSRFKey string
	Secure  bool
}

// LimitsConfig holds rate limits in ulule/limiter format ("10-M").
type LimitsConfig struct {
	Login string
}

// BootstrapConfig describes the director account created on an empty database.
type BootstrapConfig struct {
	Username string
	Password string
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// MigrateURL returns the postgres URL form expected by golang-migrate.
func (d DatabaseConfig) MigrateURL() string {
	if strings.HasPrefix(d.URL, "postgres://") || strings.HasPrefix(d.URL, "postgresql://") {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			URL:      getEnv("DATABASE_URL", ""),
			Path:     getEnv("DB_PATH", "invoices.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "invoices"),
			Password: getEnv("DB_PASSWORD", "invoices123"),
			DBName:   getEnv("DB_NAME", "invoices"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Debug:    getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:        getEnvBool("DEV", true),
			Migrations: getEnvBool("MIGRATIONS", false),
			Seed:       getEnvBool("DB_SEED", true),
			Timezone:   getEnv("APP_TIMEZONE", "Asia/Tokyo"),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Dir:   getEnv("LOG_DIR", "logs"),
		},
		Storage: StorageConfig{
			TemplatePath:  getEnv("INVOICE_TEMPLATE", "invoice_template.xlsx"),
			OutputDir:     getEnv("OUTPUT_DIR", "generated_invoices"),
			LayoutFile:    getEnv("SHEET_LAYOUT_FILE", ""),
			RetentionDays: getEnvInt("RETENTION_DAYS", 0),
		},
		Session: SessionConfig{
			Secret:  getEnv("SESSION_SECRET", "devsessionsecret"),
			CSRFKey: getEnv("CSRF_KEY", ""),
			Secure:  getEnvBool("COOKIE_SECURE", false),
		},
		Limits: LimitsConfig{
			Login: getEnv("LOGIN_RATE", "10-M"),
		},
		Bootstrap: BootstrapConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}
}

// Validate reports settings that would prevent the server from starting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("config: OUTPUT_DIR must not be empty")
	}
	if !c.App.Dev && c.Session.Secret == "devsessionsecret" {
		return fmt.Errorf("config: SESSION_SECRET must be set outside dev mode")
	}
	if c.Session.CSRFKey != "" && len(c.Session.CSRFKey) != 32 {
		return fmt.Errorf("config: CSRF_KEY must be 32 bytes, got %d", len(c.Session.CSRFKey))
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
