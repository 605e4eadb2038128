package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/diewo77/sheet-invoices/i18n"
	"github.com/diewo77/sheet-invoices/internal/models"
)

func TestLogin(t *testing.T) {
	e := newEnv(t, true)
	e.mustUser(t, "alice", "pw-alice", models.RoleGeneral)
	e.mustUser(t, "boss", "pw-boss", models.RoleManager)
	off := e.mustUser(t, "gone", "pw-gone", models.RoleGeneral)
	if err := e.db.Model(off).Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantLoc  string
		wantBody string
	}{
		{"missing password", url.Values{"username": {"alice"}}, http.StatusOK, "", i18n.T("ja", "login_missing")},
		{"blank username", url.Values{"username": {"   "}, "password": {"x"}}, http.StatusOK, "", i18n.T("ja", "login_missing")},
		{"wrong password", url.Values{"username": {"alice"}, "password": {"nope"}}, http.StatusOK, "", i18n.T("ja", "login_invalid")},
		{"unknown user", url.Values{"username": {"bob"}, "password": {"x"}}, http.StatusOK, "", i18n.T("ja", "login_invalid")},
		{"inactive", url.Values{"username": {"gone"}, "password": {"pw-gone"}}, http.StatusOK, "", i18n.T("ja", "login_inactive")},
		{"general", url.Values{"username": {" alice "}, "password": {"pw-alice"}}, http.StatusSeeOther, "/create-invoice", ""},
		{"manager", url.Values{"username": {"boss"}, "password": {"pw-boss"}}, http.StatusSeeOther, "/admin/", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			e.authH.Login(rr, postForm("/login", 0, tc.form))
			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tc.wantCode, rr.Body.String())
			}
			if loc := rr.Header().Get("Location"); loc != tc.wantLoc {
				t.Errorf("location = %q, want %q", loc, tc.wantLoc)
			}
			if tc.wantBody != "" && !strings.Contains(rr.Body.String(), tc.wantBody) {
				t.Errorf("body missing %q", tc.wantBody)
			}
			gotSession := strings.Contains(strings.Join(rr.Header().Values("Set-Cookie"), ";"), "session=")
			if gotSession != (tc.wantLoc != "") {
				t.Errorf("session cookie set = %v", gotSession)
			}
		})
	}
}

func TestLoginPageAndRedirects(t *testing.T) {
	e := newEnv(t, true)
	boss := e.mustUser(t, "boss", "pw", models.RoleDirector)

	rr := httptest.NewRecorder()
	e.authH.Login(rr, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `name="username"`) {
		t.Fatalf("login page: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	e.authH.Login(rr, as(httptest.NewRequest(http.MethodGet, "/login", nil), boss.ID))
	if loc := rr.Header().Get("Location"); loc != "/admin/" {
		t.Errorf("signed-in login redirect = %q", loc)
	}

	tests := []struct {
		uid  uint
		want string
	}{
		{0, "/login"},
		{boss.ID, "/admin/"},
		{9999, "/login"},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		e.authH.Home(rr, as(httptest.NewRequest(http.MethodGet, "/", nil), tc.uid))
		if loc := rr.Header().Get("Location"); loc != tc.want {
			t.Errorf("home as %d = %q, want %q", tc.uid, loc, tc.want)
		}
	}
}

func TestLogout(t *testing.T) {
	e := newEnv(t, true)
	rr := httptest.NewRecorder()
	e.authH.Logout(rr, httptest.NewRequest(http.MethodPost, "/logout", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("logout: %d %q", rr.Code, rr.Header().Get("Location"))
	}
	cookies := strings.Join(rr.Header().Values("Set-Cookie"), ";")
	if !strings.Contains(cookies, "session=;") || !strings.Contains(cookies, "flash=") {
		t.Errorf("cookies = %s", cookies)
	}
}
