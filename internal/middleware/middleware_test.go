package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/diewo77/sheet-invoices/i18n"
)

func TestPrefs(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		cookie     string
		accept     string
		want       string
		wantCookie bool
	}{
		{"default", "", "", "", "ja", false},
		{"accept language", "", "", "en-US,en;q=0.9", "en", false},
		{"cookie wins over header", "", "ja", "en", "ja", false},
		{"query wins and persists", "?lang=en", "ja", "", "en", true},
		{"unsupported query ignored", "?lang=xx", "", "en", "en", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := Prefs(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = LangFrom(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: langCookie, Value: tc.cookie})
			}
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if got != tc.want {
				t.Errorf("lang = %q, want %q", got, tc.want)
			}
			set := strings.Contains(rr.Header().Get("Set-Cookie"), langCookie+"=")
			if set != tc.wantCookie {
				t.Errorf("cookie set = %v, want %v", set, tc.wantCookie)
			}
		})
	}
}

// addLatestCookies copies the last Set-Cookie per name onto req.
func addLatestCookies(req *http.Request, rr *httptest.ResponseRecorder) {
	latest := map[string]*http.Cookie{}
	var order []string
	for _, c := range rr.Result().Cookies() {
		if _, ok := latest[c.Name]; !ok {
			order = append(order, c.Name)
		}
		latest[c.Name] = c
	}
	for _, name := range order {
		req.AddCookie(latest[name])
	}
}

func TestFlasherRoundTrip(t *testing.T) {
	f := NewFlasher("test-secret-test-secret-test-sec", false)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(i18n.WithLang(req.Context(), "ja"))
	f.Code(rr, req, FlashSuccess, "company_added")
	f.Add(rr, req, FlashError, "boom")

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	addLatestCookies(next, rr)
	rr2 := httptest.NewRecorder()
	got := f.Pop(rr2, next)
	want := []FlashMessage{
		{Kind: FlashSuccess, Message: i18n.T("ja", "company_added")},
		{Kind: FlashError, Message: "boom"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("flashes mismatch (-want +got):\n%s", diff)
	}

	third := httptest.NewRequest(http.MethodGet, "/", nil)
	addLatestCookies(third, rr2)
	if left := f.Pop(httptest.NewRecorder(), third); len(left) != 0 {
		t.Fatalf("flashes not cleared: %v", left)
	}
}

func TestFlasherNoCookie(t *testing.T) {
	f := NewFlasher("another-secret-another-secret-32", false)
	if got := f.Pop(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)); got != nil {
		t.Fatalf("expected no flashes, got %v", got)
	}
}

func TestRateLimit(t *testing.T) {
	mw, err := RateLimit("2-M")
	if err != nil {
		t.Fatal(err)
	}
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}
	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Fatalf("status codes (-want +got):\n%s", diff)
	}

	if _, err := RateLimit("lots"); err == nil {
		t.Fatal("expected error for malformed rate")
	}
}

func TestRequestLog(t *testing.T) {
	var seen string
	h := RequestLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	id := rr.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("bad request id %q: %v", id, err)
	}
	if seen != id {
		t.Errorf("context id %q != header id %q", seen, id)
	}

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, given)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) != given {
		t.Errorf("incoming id not kept")
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal_error") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
