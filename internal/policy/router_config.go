package policy

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/config"
	"github.com/diewo77/sheet-invoices/internal/handlers"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/services"
	"github.com/diewo77/sheet-invoices/internal/sheet"
)

// RouterConfig holds configured handlers and middleware for the application.
type RouterConfig struct {
	// AuthGate provides authorization checks and middleware
	AuthGate *AuthGate

	// Flasher carries one-shot messages across redirects
	Flasher *middleware.Flasher

	// Exporter fills the invoice template and builds history workbooks
	Exporter *sheet.Exporter

	AuthHandler    *handlers.AuthHandler
	AdminHandler   *handlers.AdminHandler
	InvoiceHandler *handlers.InvoiceHandler

	// Users backs the session verifier.
	Users *services.UserService
}

// NewRouterConfig wires services, the spreadsheet exporter, the
// authorization gate and the handlers from cfg.
func NewRouterConfig(db *gorm.DB, cfg *config.Config) (*RouterConfig, error) {
	loc := cfg.App.Location()

	layout, err := sheet.LoadLayout(cfg.Storage.LayoutFile)
	if err != nil {
		return nil, fmt.Errorf("load sheet layout: %w", err)
	}
	exporter := sheet.NewExporter(cfg.Storage.TemplatePath, cfg.Storage.OutputDir, layout, loc)

	flasher := middleware.NewFlasher(cfg.Session.Secret, cfg.Session.Secure)

	// Roles are cached for five minutes; deleting a user drops its entry early.
	authGate := NewAuthGate(db, 5*time.Minute, flasher)

	companies := services.NewCompanyService(db)
	templates := services.NewTemplateService(db)
	users := services.NewUserService(db)
	invoices := services.NewInvoiceService(db, loc)
	history := services.NewHistoryService(db, loc)
	stats := services.NewStatsService(db, companies)

	return &RouterConfig{
		AuthGate:       authGate,
		Flasher:        flasher,
		Exporter:       exporter,
		AuthHandler:    handlers.NewAuthHandler(users, flasher),
		AdminHandler:   handlers.NewAdminHandler(companies, templates, users, invoices, stats, flasher, authGate, loc),
		InvoiceHandler: handlers.NewInvoiceHandler(companies, templates, invoices, history, exporter, flasher, loc),
		Users:          users,
	}, nil
}
