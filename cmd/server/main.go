package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/internal/config"
	"github.com/diewo77/sheet-invoices/internal/db"
	"github.com/diewo77/sheet-invoices/internal/policy"
	"github.com/diewo77/sheet-invoices/internal/retention"
	"github.com/diewo77/sheet-invoices/internal/sheet"
)

// options are the command line switches. Everything else comes from the
// environment, optionally seeded from EnvFile.
type options struct {
	MigrateOnly bool   `long:"migrate-only" description:"Run DB migrations and exit"`
	SeedOnly    bool   `long:"seed-only" description:"Run DB seed and exit"`
	Port        string `short:"p" long:"port" description:"Listen port, overrides PORT"`
	EnvFile     string `long:"env-file" default:".env" description:"dotenv file loaded before reading the environment"`
	LogLevel    string `long:"loglevel" description:"Log level for all subsystems, overrides LOG_LEVEL"`
}

func _main() error {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load(opts.EnvFile)

	cfg := config.Load()
	if opts.Port != "" {
		cfg.Server.Port = opts.Port
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Log.Dir != "" {
		if err := initLogRotator(filepath.Join(cfg.Log.Dir, "server.log")); err != nil {
			return err
		}
		defer logRotator.Close()
	}
	setLogLevels(cfg.Log.Level)

	dbConn, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.MigrateOnly {
		if err := db.Migrate(dbConn, cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Infof("Migrations completed successfully")
		return nil
	}
	if opts.SeedOnly {
		if err := db.Seed(dbConn, cfg.Bootstrap); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		log.Infof("Seeding completed successfully")
		return nil
	}

	// Run migrations on startup; the sqlite dev database has no other way in.
	if err := db.Migrate(dbConn, cfg); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if cfg.App.Seed {
		if err := db.Seed(dbConn, cfg.Bootstrap); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
	}

	routerCfg, err := policy.NewRouterConfig(dbConn, cfg)
	if err != nil {
		return err
	}

	// Sessions are valid only while the account exists and is active.
	auth.Configure(cfg.Session.Secret, 0)
	auth.SetUserVerifier(routerCfg.Users.Active)

	if err := routerCfg.Exporter.CheckTemplate(); err != nil {
		if errors.Is(err, sheet.ErrTemplateMissing) {
			log.Warnf("Invoice template %v not found; invoice generation will fail until it exists",
				cfg.Storage.TemplatePath)
		} else {
			return fmt.Errorf("invoice template: %w", err)
		}
	}

	sweeper := retention.New(cfg.Storage.OutputDir, cfg.Storage.RetentionDays)
	if err := sweeper.Start(retention.DefaultSchedule); err != nil {
		return err
	}
	defer sweeper.Stop()

	appHandler, err := NewApp(dbConn, cfg, routerCfg)
	if err != nil {
		return err
	}
	var handler http.Handler = appHandler
	if cfg.Session.CSRFKey != "" {
		handler = csrf.Protect([]byte(cfg.Session.CSRFKey),
			csrf.Secure(cfg.Session.Secure),
			csrf.Path("/"),
		)(handler)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on port %s (dev=%v, db=%s)",
			cfg.Server.Port, cfg.App.Dev, db.MaskDSN(cfg.Database.DSN()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Infof("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}
	log.Infof("Server stopped gracefully")
	return nil
}

func main() {
	if err := _main(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
