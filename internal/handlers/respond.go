package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/schema"

	"github.com/diewo77/sheet-invoices/httpx"
	"github.com/diewo77/sheet-invoices/i18n"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/models"
	"github.com/diewo77/sheet-invoices/internal/services"
	"github.com/diewo77/sheet-invoices/internal/sheet"
	"github.com/diewo77/sheet-invoices/validation"
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// conflicts are expected outcomes reported as {success:false} with status 200.
var conflicts = []error{
	services.ErrCompanyCodeTaken,
	services.ErrUsernameTaken,
	services.ErrSelfDelete,
	services.ErrSelfRoleChange,
	services.ErrInvalidCredentials,
	services.ErrInactiveUser,
	models.ErrInvalidRole,
}

// notFounds carry their own translated message.
var notFounds = []error{
	services.ErrNotFound,
	services.ErrCompanyNotFound,
	services.ErrHistoryNotFound,
	sheet.ErrTemplateMissing,
}

func lang(r *http.Request) string { return i18n.LangFromContext(r.Context()) }

func tr(r *http.Request, code string) string { return i18n.T(lang(r), code) }

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// errorMessage renders err for the user in the request language.
func errorMessage(r *http.Request, err error) string {
	var v validation.Violations
	if errors.As(err, &v) {
		parts := make([]string, 0, len(v))
		for _, f := range v.Fields() {
			parts = append(parts, f+": "+tr(r, v[f]))
		}
		return strings.Join(parts, ", ")
	}
	if errors.Is(err, models.ErrInvalidRole) {
		return tr(r, "invalid_role")
	}
	for _, t := range append(conflicts, notFounds...) {
		if errors.Is(err, t) {
			return tr(r, t.Error())
		}
	}
	return i18n.Tf(lang(r), "error_occurred", err.Error())
}

// writeResult answers a JSON mutation: success message, or the error mapped
// to its status.
func writeResult(w http.ResponseWriter, r *http.Request, err error, successCode string) {
	if err == nil {
		httpx.OK(w, tr(r, successCode))
		return
	}
	var v validation.Violations
	switch {
	case errors.As(err, &v), isAny(err, conflicts):
		httpx.Fail(w, http.StatusOK, errorMessage(r, err))
	case isAny(err, notFounds):
		httpx.Fail(w, http.StatusNotFound, errorMessage(r, err))
	default:
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		httpx.Fail(w, http.StatusOK, errorMessage(r, err))
	}
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// failRedirect flashes err and sends the user back to the composer.
func failRedirect(w http.ResponseWriter, r *http.Request, flash *middleware.Flasher, err error) {
	if !isAny(err, notFounds) {
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	flash.Add(w, r, middleware.FlashError, errorMessage(r, err))
	http.Redirect(w, r, "/create-invoice", http.StatusSeeOther)
}

// redirectByRole sends admins to the dashboard and everybody else to the composer.
func redirectByRole(w http.ResponseWriter, r *http.Request, u *models.User) {
	if u.IsAdmin() {
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/create-invoice", http.StatusSeeOther)
}
