package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/services"
	"github.com/diewo77/sheet-invoices/view"
)

// LoginForm is the sign-in form.
type LoginForm struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
}

type AuthHandler struct {
	users *services.UserService
	flash *middleware.Flasher
}

func NewAuthHandler(users *services.UserService, flash *middleware.Flasher) *AuthHandler {
	return &AuthHandler{users: users, flash: flash}
}

// Home redirects by role, or to the login screen.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if !h.redirectSignedIn(w, r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// redirectSignedIn redirects an active signed-in user by role and reports
// whether it did.
func (h *AuthHandler) redirectSignedIn(w http.ResponseWriter, r *http.Request) bool {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return false
	}
	user, err := h.users.Get(r.Context(), uid)
	if err != nil || !user.IsActive {
		return false
	}
	redirectByRole(w, r, user)
	return true
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.redirectSignedIn(w, r) {
		return
	}
	if r.Method == http.MethodGet {
		view.Render(w, r, "login.html", nil)
		return
	}

	var form LoginForm
	if err := r.ParseForm(); err != nil {
		log.Debugf("login form: %v", err)
	} else if err := decoder.Decode(&form, r.PostForm); err != nil {
		log.Debugf("login form: %v", err)
	}
	form.Username = strings.TrimSpace(form.Username)
	if form.Username == "" || form.Password == "" {
		h.loginError(w, r, form, tr(r, "login_missing"))
		return
	}

	user, err := h.users.Authenticate(r.Context(), form.Username, form.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInactiveUser):
		log.Infof("Failed login for %q: %v", form.Username, err)
		h.loginError(w, r, form, errorMessage(r, err))
		return
	case err != nil:
		log.Errorf("login: %v", err)
		h.loginError(w, r, form, errorMessage(r, err))
		return
	}

	auth.CreateSession(w, user.ID)
	h.flash.Code(w, r, middleware.FlashSuccess, "login_success")
	log.Infof("User %s signed in", user.Username)
	redirectByRole(w, r, user)
}

func (h *AuthHandler) loginError(w http.ResponseWriter, r *http.Request, form LoginForm, msg string) {
	view.Render(w, r, "login.html", map[string]any{
		"Username": form.Username,
		"Flashes":  []middleware.FlashMessage{{Kind: middleware.FlashError, Message: msg}},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	h.flash.Code(w, r, middleware.FlashSuccess, "logout_success")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
