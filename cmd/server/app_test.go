package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/internal/config"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/models"
	"github.com/diewo77/sheet-invoices/internal/policy"
	"github.com/diewo77/sheet-invoices/internal/services"
	"github.com/diewo77/sheet-invoices/internal/sheet"
	"github.com/diewo77/sheet-invoices/view"
)

// newTestApp builds the full handler stack over an in-memory database. The
// working directory moves to the repository root so templates and static
// files resolve as they do in production.
func newTestApp(t *testing.T, loginRate string) (*App, *policy.RouterConfig) {
	t.Helper()
	t.Chdir(filepath.Join("..", ".."))
	view.ResetForTests()
	t.Cleanup(view.ResetForTests)

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

	dir := t.TempDir()
	cfg := config.Load()
	cfg.Storage.TemplatePath = filepath.Join(dir, "invoice_template.xlsx")
	cfg.Storage.OutputDir = filepath.Join(dir, "out")
	cfg.Storage.LayoutFile = ""
	cfg.Session.Secret = "app-test-secret-0123456789abcdef"
	cfg.Limits.Login = loginRate
	if err := sheet.WriteBlankTemplate(cfg.Storage.TemplatePath, sheet.DefaultLayout()); err != nil {
		t.Fatal(err)
	}

	rc, err := policy.NewRouterConfig(db, cfg)
	if err != nil {
		t.Fatalf("router config: %v", err)
	}
	auth.Configure(cfg.Session.Secret, 0)
	auth.SetUserVerifier(rc.Users.Active)
	t.Cleanup(func() { auth.SetUserVerifier(nil) })

	app, err := NewApp(db, cfg, rc)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app, rc
}

type client struct {
	app     http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, app http.Handler) *client {
	return &client{app: app, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.app.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rr
}

func (c *client) get(path string, asJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	return c.do(req)
}

func (c *client) post(path string, form url.Values, asJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	return c.do(req)
}

func (c *client) login(username, password string) *httptest.ResponseRecorder {
	return c.post("/login", url.Values{"username": {username}, "password": {password}}, false)
}

func mustCreateUser(t *testing.T, rc *policy.RouterConfig, name string, role models.Role) {
	t.Helper()
	_, err := rc.Users.Create(context.Background(), services.UserInput{Username: name, Password: "secret", Role: string(role)})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t, "10-M")
	rr := newClient(t, app).get("/healthz", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestAnonymousRouting(t *testing.T) {
	app, _ := newTestApp(t, "10-M")
	c := newClient(t, app)

	tests := []struct {
		name     string
		method   string
		path     string
		json     bool
		code     int
		location string
	}{
		{"home", http.MethodGet, "/", false, http.StatusSeeOther, "/login"},
		{"composer", http.MethodGet, "/create-invoice", false, http.StatusSeeOther, "/login"},
		{"admin", http.MethodGet, "/admin/", false, http.StatusSeeOther, "/login"},
		{"admin json", http.MethodPost, "/admin/add-company", true, http.StatusUnauthorized, ""},
		{"login page", http.MethodGet, "/login", false, http.StatusOK, ""},
		{"unknown", http.MethodGet, "/nope", false, http.StatusNotFound, ""},
		{"static", http.MethodGet, "/static/app.js", false, http.StatusOK, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var rr *httptest.ResponseRecorder
			if tc.method == http.MethodPost {
				rr = c.post(tc.path, url.Values{}, tc.json)
			} else {
				rr = c.get(tc.path, tc.json)
			}
			if rr.Code != tc.code {
				t.Fatalf("status = %d, want %d (body %q)", rr.Code, tc.code, rr.Body.String())
			}
			if tc.location != "" {
				if got := rr.Header().Get("Location"); got != tc.location {
					t.Errorf("Location = %q, want %q", got, tc.location)
				}
			}
		})
	}
}

func TestLoginFlowByRole(t *testing.T) {
	app, rc := newTestApp(t, "10-M")
	mustCreateUser(t, rc, "boss", models.RoleDirector)
	mustCreateUser(t, rc, "clerk", models.RoleGeneral)

	boss := newClient(t, app)
	rr := boss.login("boss", "secret")
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/" {
		t.Fatalf("director login = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	rr = boss.get("/admin/", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	var dash struct {
		Success bool                     `json:"success"`
		Flashes []middleware.FlashMessage `json:"flashes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if !dash.Success || len(dash.Flashes) != 1 || dash.Flashes[0].Kind != middleware.FlashSuccess {
		t.Errorf("dashboard = %+v, want success with one login flash", dash)
	}

	rr = boss.post("/admin/add-company", url.Values{"company_name": {"株式会社テスト"}}, true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"success":true`) {
		t.Errorf("add company = %d %s", rr.Code, rr.Body.String())
	}

	clerk := newClient(t, app)
	rr = clerk.login("clerk", "secret")
	if rr.Header().Get("Location") != "/create-invoice" {
		t.Fatalf("general login redirect = %q", rr.Header().Get("Location"))
	}
	if rr = clerk.get("/create-invoice", false); rr.Code != http.StatusOK {
		t.Errorf("composer status = %d", rr.Code)
	}
	rr = clerk.get("/admin/", false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/create-invoice" {
		t.Errorf("general on admin = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	rr = clerk.post("/admin/add-company", url.Values{"company_name": {"x"}}, true)
	if rr.Code != http.StatusForbidden {
		t.Errorf("general add company status = %d, want 403", rr.Code)
	}
	rr = clerk.get("/get-company-info?company_code=0001", true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "株式会社テスト") {
		t.Errorf("company info = %d %s", rr.Code, rr.Body.String())
	}

	rr = clerk.post("/logout", url.Values{}, false)
	if rr.Header().Get("Location") != "/login" {
		t.Errorf("logout redirect = %q", rr.Header().Get("Location"))
	}
	if rr = clerk.get("/create-invoice", false); rr.Header().Get("Location") != "/login" {
		t.Errorf("after logout composer = %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestInactiveUserSessionRejected(t *testing.T) {
	app, rc := newTestApp(t, "10-M")
	mustCreateUser(t, rc, "temp", models.RoleGeneral)

	c := newClient(t, app)
	c.login("temp", "secret")
	err := app.db.Model(&models.User{}).Where("username = ?", "temp").
		UpdateColumn("is_active", false).Error
	if err != nil {
		t.Fatal(err)
	}
	rr := c.get("/create-invoice", false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Errorf("inactive user composer = %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestRoleChangeAppliesImmediately(t *testing.T) {
	app, rc := newTestApp(t, "10-M")
	mustCreateUser(t, rc, "boss", models.RoleDirector)
	mustCreateUser(t, rc, "clerk", models.RoleGeneral)
	var clerkUser models.User
	if err := app.db.Where("username = ?", "clerk").First(&clerkUser).Error; err != nil {
		t.Fatal(err)
	}

	clerk := newClient(t, app)
	clerk.login("clerk", "secret")
	// Warm the profile cache with the general role.
	if rr := clerk.get("/admin/", true); rr.Code != http.StatusForbidden {
		t.Fatalf("general dashboard status = %d, want 403", rr.Code)
	}

	boss := newClient(t, app)
	boss.login("boss", "secret")
	path := "/admin/set-user-role/" + strconv.Itoa(int(clerkUser.ID))
	rr := boss.post(path, url.Values{"role": {"manager"}}, true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"success":true`) {
		t.Fatalf("set role = %d %s", rr.Code, rr.Body.String())
	}

	if rr := clerk.get("/admin/", true); rr.Code != http.StatusOK {
		t.Errorf("promoted dashboard status = %d, want 200", rr.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	app, _ := newTestApp(t, "2-M")
	c := newClient(t, app)
	for i := 0; i < 2; i++ {
		if rr := c.post("/login", url.Values{}, false); rr.Code != http.StatusOK {
			t.Fatalf("attempt %d status = %d", i+1, rr.Code)
		}
	}
	if rr := c.post("/login", url.Values{}, false); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", rr.Code)
	}
	// Reading the form is not limited.
	if rr := c.get("/login", false); rr.Code != http.StatusOK {
		t.Errorf("GET /login status = %d", rr.Code)
	}
}

func TestNewAppBadRate(t *testing.T) {
	cfg := config.Load()
	cfg.Limits.Login = "bogus"
	if _, err := NewApp(nil, cfg, &policy.RouterConfig{}); err == nil {
		t.Fatal("expected rate parse error")
	}
}
