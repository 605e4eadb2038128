package view

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
	"github.com/shopspring/decimal"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/i18n"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	location = time.Local

	langResolver = func(r *http.Request) string { return i18n.LangFromContext(r.Context()) }
	// resolvers set by the host app so templates can check roles and show flashes
	isAdminResolver func(*http.Request) bool
	flashResolver   func(http.ResponseWriter, *http.Request) any
)

// SetIsAdminResolver sets a callback used by templates to determine admin (manager or director) users.
func SetIsAdminResolver(f func(*http.Request) bool) {
	if f != nil {
		isAdminResolver = f
	}
}

// SetFlashResolver sets a callback that pops pending flash messages for the request.
func SetFlashResolver(f func(http.ResponseWriter, *http.Request) any) {
	if f != nil {
		flashResolver = f
	}
}

// SetLangResolver allows the host app to provide a custom language resolver.
func SetLangResolver(f func(*http.Request) string) {
	if f != nil {
		langResolver = f
	}
}

// SetLocation sets the zone timestamps are displayed in.
func SetLocation(loc *time.Location) {
	if loc != nil {
		location = loc
	}
}

// layoutBase walks upward from a template path to find the directory that contains layout.html.
// If none is found, it returns the template's own directory.
func layoutBase(mainPath string) string {
	d := filepath.Dir(mainPath)
	for {
		lp := filepath.Join(d, "layout.html")
		if fi, err := os.Stat(lp); err == nil && !fi.IsDir() {
			return d
		}
		p := filepath.Dir(d)
		if p == d {
			return filepath.Dir(mainPath)
		}
		d = p
	}
}

func detectBase() {
	candidates := []string{"templates", "../templates", "../../templates"}
	for _, c := range candidates {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Funcs returns the standard func map including i18n and simple helpers.
func Funcs(r *http.Request) template.FuncMap {
	lang := langResolver(r)
	return template.FuncMap{
		"t":    func(code string) string { return i18n.T(lang, code) },
		"lang": func() string { return lang },
		"isAdmin": func() bool {
			if isAdminResolver == nil {
				return false
			}
			return isAdminResolver(r)
		},
		// csrfField renders the hidden token input; empty when CSRF protection is off.
		"csrfField": func() template.HTML { return csrf.TemplateField(r) },
		"csrfToken": func() string { return csrf.Token(r) },
		"yen":       FormatYen,
		"datetime": func(t time.Time) string {
			return t.In(location).Format("2006-01-02 15:04")
		},
		"year": func() int { return time.Now().In(location).Year() },
	}
}

// FormatYen renders an amount with thousands separators and no fraction
// when the amount is whole, e.g. "1,234" or "1,234.50".
func FormatYen(d decimal.Decimal) string {
	s := d.StringFixed(2)
	s = strings.TrimSuffix(s, ".00")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// SetBaseDir overrides the template base directory (useful for tests or custom setups).
func SetBaseDir(path string) {
	if path == "" {
		return
	}
	baseDir = filepath.Clean(path)
	once = sync.Once{}
}

// ResetForTests clears caches and forces base dir detection to rerun.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	baseDir = ""
	once = sync.Once{}
}

// Render parses and executes a single template file with shared funcs.
// name is relative to the templates root (e.g., "admin/dashboard.html").
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	if baseDir == "" {
		once.Do(detectBase)
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}
	if _, exists := data["Flashes"]; !exists && flashResolver != nil {
		data["Flashes"] = flashResolver(w, r)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// Funcs close over the request, so cached templates are re-bound per call.
	devMode := os.Getenv("DEV") == "1"
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[name]
		tplCache.RUnlock()
		if ok && t != nil {
			clone, err := t.Clone()
			if err != nil {
				return err
			}
			return clone.Funcs(Funcs(r)).Execute(w, data)
		}
	}

	mainPath := filepath.Join(baseDir, name)
	if _, err := os.Stat(mainPath); err != nil {
		return err
	}
	root := layoutBase(mainPath)
	layoutPath := filepath.Join(root, "layout.html")

	contentBytes, err := os.ReadFile(mainPath)
	if err != nil {
		return err
	}
	var t *template.Template
	// Full documents skip layout wrapping.
	if !bytes.Contains(bytes.ToLower(contentBytes), []byte("<!doctype")) && fileExists(layoutPath) {
		t, err = template.New("layout.html").Funcs(Funcs(r)).ParseFiles(layoutPath, mainPath)
	} else {
		t, err = template.New(filepath.Base(name)).Funcs(Funcs(r)).ParseFiles(mainPath)
	}
	if err != nil {
		return err
	}
	if t == nil {
		return errors.New("template not parsed")
	}
	if devMode {
		return t.Execute(w, data)
	}
	// The cached copy is never executed so it stays clonable.
	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	clone, err := t.Clone()
	if err != nil {
		return err
	}
	return clone.Execute(w, data)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
