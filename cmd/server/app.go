package main

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/gate"
	"github.com/diewo77/sheet-invoices/httpx"
	"github.com/diewo77/sheet-invoices/internal/config"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/policy"
	"github.com/diewo77/sheet-invoices/view"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *policy.RouterConfig
	loginRate func(http.Handler) http.Handler
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, cfg *config.Config, routerCfg *policy.RouterConfig) (*App, error) {
	loginRate, err := middleware.RateLimit(cfg.Limits.Login)
	if err != nil {
		return nil, err
	}
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
		loginRate: loginRate,
	}

	// Templates only need to know whether to show the admin menu and which
	// flashes are pending; keep policy types out of the view package.
	view.SetIsAdminResolver(routerCfg.AuthGate.IsAdmin)
	view.SetFlashResolver(func(w http.ResponseWriter, r *http.Request) any {
		return routerCfg.Flasher.Pop(w, r)
	})
	view.SetLangResolver(middleware.LangFrom)
	view.SetLocation(cfg.App.Location())

	app.setupRoutes()
	return app, nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Outermost first: panic recovery, request log, session, language.
	handler := middleware.Recover(middleware.RequestLog(auth.Middleware(middleware.Prefs(a.mux))))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler

	a.mux.HandleFunc("GET /{$}", ah.Home)
	a.mux.HandleFunc("GET /login", ah.Login)
	a.mux.Handle("POST /login", a.loginRate(http.HandlerFunc(ah.Login)))
	a.mux.HandleFunc("GET /logout", ah.Logout)
	a.mux.HandleFunc("POST /logout", ah.Logout)
	a.mux.HandleFunc("GET /healthz", a.healthz)

	// ─────────────────────────────────────────────────────────────────────────
	// Invoice routes (any signed-in role with the matching permission)
	// ─────────────────────────────────────────────────────────────────────────
	ih := a.routerCfg.InvoiceHandler

	a.mux.Handle("GET /create-invoice",
		a.requireAuth(a.requirePermission(policy.ResourceInvoice, gate.ActionView)(http.HandlerFunc(ih.Compose))))
	a.mux.Handle("GET /get-company-info",
		a.requireAuth(a.requirePermission(policy.ResourceCompany, gate.ActionView)(http.HandlerFunc(ih.CompanyInfo))))
	a.mux.Handle("POST /generate-invoice",
		a.requireAuth(a.requirePermission(policy.ResourceInvoice, gate.ActionCreate)(http.HandlerFunc(ih.Generate))))
	a.mux.Handle("POST /export-monthly-history",
		a.requireAuth(a.requirePermission(policy.ResourceHistory, gate.ActionExport)(http.HandlerFunc(ih.ExportHistory))))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes (manager or director)
	// ─────────────────────────────────────────────────────────────────────────
	adm := a.routerCfg.AdminHandler

	a.mux.Handle("GET /admin/{$}", a.requireAdmin(http.HandlerFunc(adm.Dashboard)))
	a.mux.Handle("GET /admin/companies", a.requireAdmin(http.HandlerFunc(adm.Companies)))
	a.mux.Handle("GET /admin/invoice-items", a.requireAdmin(http.HandlerFunc(adm.InvoiceItems)))
	a.mux.Handle("GET /admin/users", a.requireAdmin(http.HandlerFunc(adm.Users)))
	a.mux.Handle("GET /admin/create-invoice", a.requireAdmin(http.HandlerFunc(adm.CreateInvoice)))
	a.mux.Handle("GET /admin/export-history", a.requireAdmin(http.HandlerFunc(adm.ExportHistory)))

	a.mux.Handle("POST /admin/add-company", a.requireAdmin(http.HandlerFunc(adm.AddCompany)))
	a.mux.Handle("POST /admin/add-invoice-item", a.requireAdmin(http.HandlerFunc(adm.AddInvoiceItem)))
	a.mux.Handle("POST /admin/add-user", a.requireAdmin(http.HandlerFunc(adm.AddUser)))
	a.mux.Handle("POST /admin/set-user-role/{id}", a.requireAdmin(http.HandlerFunc(adm.SetUserRole)))
	a.mux.Handle("POST /admin/delete-user/{id}", a.requireAdmin(http.HandlerFunc(adm.DeleteUser)))
	a.mux.Handle("POST /admin/delete-company/{id}", a.requireAdmin(http.HandlerFunc(adm.DeleteCompany)))
	a.mux.Handle("POST /admin/delete-invoice-item/{id}", a.requireAdmin(http.HandlerFunc(adm.DeleteInvoiceItem)))

	// ─────────────────────────────────────────────────────────────────────────
	// Static files
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// requireAuth rejects anonymous sessions and sessions of deleted or inactive users.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return auth.RequireAuth(next)
}

// requireAdmin wraps a handler to require the manager or director role.
func (a *App) requireAdmin(next http.Handler) http.Handler {
	return auth.RequireAuth(a.routerCfg.AuthGate.RequireAdmin()(next))
}

// requirePermission wraps a handler to require specific resource permission.
func (a *App) requirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return a.routerCfg.AuthGate.RequirePermission(resourceType, action)
}

// healthz reports whether the database answers a trivial query.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		log.Warnf("Health check failed: %v", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
