package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/httpx"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/models"
	"github.com/diewo77/sheet-invoices/internal/services"
	"github.com/diewo77/sheet-invoices/internal/sheet"
	"github.com/diewo77/sheet-invoices/view"
)

type env struct {
	db        *gorm.DB
	flash     *middleware.Flasher
	users     *services.UserService
	companies *services.CompanyService
	templates *services.TemplateService
	invoices  *services.InvoiceService
	outDir    string
	authH     *AuthHandler
	admin     *AdminHandler
	invoice   *InvoiceHandler
	evicted   []uint
}

func (e *env) InvalidateUser(id uint) { e.evicted = append(e.evicted, id) }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newEnv wires handlers over a fresh database. withTemplate controls whether
// the invoice workbook template exists.
func newEnv(t *testing.T, withTemplate bool) *env {
	t.Helper()
	view.ResetForTests()
	view.SetBaseDir(filepath.Join("..", "..", "templates"))
	t.Cleanup(view.ResetForTests)

	db := setupTestDB(t)
	dir := t.TempDir()
	tpl := filepath.Join(dir, "invoice_template.xlsx")
	if withTemplate {
		if err := sheet.WriteBlankTemplate(tpl, sheet.DefaultLayout()); err != nil {
			t.Fatal(err)
		}
	}
	out := filepath.Join(dir, "generated_invoices")

	e := &env{
		db:        db,
		flash:     middleware.NewFlasher("handlers-test-secret-0123456789ab", false),
		users:     services.NewUserService(db),
		companies: services.NewCompanyService(db),
		templates: services.NewTemplateService(db),
		invoices:  services.NewInvoiceService(db, time.UTC),
		outDir:    out,
	}
	exporter := sheet.NewExporter(tpl, out, sheet.DefaultLayout(), time.UTC)
	e.authH = NewAuthHandler(e.users, e.flash)
	e.admin = NewAdminHandler(e.companies, e.templates, e.users, e.invoices,
		services.NewStatsService(db, e.companies), e.flash, e, time.UTC)
	e.invoice = NewInvoiceHandler(e.companies, e.templates, e.invoices, services.NewHistoryService(db, time.UTC), exporter, e.flash, time.UTC)
	return e
}

func (e *env) mustUser(t *testing.T, name, password string, role models.Role) *models.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), services.UserInput{Username: name, Password: password, Role: string(role)})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (e *env) mustCompany(t *testing.T, name string) *models.Company {
	t.Helper()
	c, err := e.companies.Create(context.Background(), services.CompanyInput{CompanyName: name, ContactPerson: "担当", Email: "x@example.com"})
	if err != nil {
		t.Fatalf("create company %s: %v", name, err)
	}
	return c
}

// postForm builds a form POST acting as uid (0 for anonymous).
func postForm(path string, uid uint, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return as(req, uid)
}

func as(req *http.Request, uid uint) *http.Request {
	if uid == 0 {
		return req
	}
	return req.WithContext(auth.WithUserID(req.Context(), uid))
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) httpx.Result {
	t.Helper()
	var res httpx.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return res
}
