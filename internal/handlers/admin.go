package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/httpx"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/models"
	"github.com/diewo77/sheet-invoices/internal/services"
	"github.com/diewo77/sheet-invoices/view"
)

// UserInvalidator drops cached authorization state for a user.
type UserInvalidator interface {
	InvalidateUser(userID uint)
}

// AdminHandler serves the manager/director screens and their JSON endpoints.
// Role checks happen in the router.
type AdminHandler struct {
	companies *services.CompanyService
	templates *services.TemplateService
	users     *services.UserService
	invoices  *services.InvoiceService
	stats     *services.StatsService
	flash     *middleware.Flasher
	authz     UserInvalidator
	loc       *time.Location
}

// recentInvoices is how many invoices the dashboard lists.
const recentInvoices = 10

func NewAdminHandler(companies *services.CompanyService, templates *services.TemplateService, users *services.UserService,
	invoices *services.InvoiceService, stats *services.StatsService, flash *middleware.Flasher, authz UserInvalidator,
	loc *time.Location) *AdminHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{
		companies: companies,
		templates: templates,
		users:     users,
		invoices:  invoices,
		stats:     stats,
		flash:     flash,
		authz:     authz,
		loc:       loc,
	}
}

// render answers a list screen with HTML, or with data plus pending flashes
// when the client asked for JSON.
func (h *AdminHandler) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if httpx.WantsJSON(r) {
		out := map[string]any{"success": true, "flashes": h.flash.Pop(w, r)}
		for k, v := range data {
			out[k] = v
		}
		httpx.JSON(w, http.StatusOK, out)
		return
	}
	if err := view.Render(w, r, name, data); err != nil {
		log.Errorf("render %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *AdminHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	if httpx.WantsJSON(r) {
		httpx.Fail(w, http.StatusInternalServerError, errorMessage(r, err))
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Collect(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	recent, err := h.invoices.Recent(r.Context(), recentInvoices)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "admin/dashboard.html", map[string]any{
		"stats":           stats,
		"companies":       companies,
		"recent_invoices": recent,
	})
}

func (h *AdminHandler) Companies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	next, err := h.companies.NextCode(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "admin/companies.html", map[string]any{
		"companies":         companies,
		"next_company_code": next,
	})
}

func (h *AdminHandler) InvoiceItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.templates.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "admin/invoice_items.html", map[string]any{"invoice_items": items})
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	h.render(w, r, "admin/users.html", map[string]any{
		"users":      users,
		"roles":      models.Roles,
		"current_id": uid,
	})
}

// CreateInvoice is the admin flavour of the composer, companies sorted by code.
func (h *AdminHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	items, err := h.templates.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "admin/create_invoice.html", map[string]any{
		"companies":     companies,
		"invoice_items": items,
	})
}

func (h *AdminHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	now := time.Now().In(h.loc)
	h.render(w, r, "admin/export_history.html", map[string]any{
		"companies": companies,
		"year":      now.Year(),
		"month":     int(now.Month()),
	})
}

func (h *AdminHandler) AddCompany(w http.ResponseWriter, r *http.Request) {
	var in services.CompanyInput
	if !h.decode(w, r, &in) {
		return
	}
	_, err := h.companies.Create(r.Context(), in)
	writeResult(w, r, err, "company_added")
}

func (h *AdminHandler) AddInvoiceItem(w http.ResponseWriter, r *http.Request) {
	var in services.TemplateInput
	if !h.decode(w, r, &in) {
		return
	}
	_, err := h.templates.Create(r.Context(), in)
	writeResult(w, r, err, "item_added")
}

func (h *AdminHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var in services.UserInput
	if !h.decode(w, r, &in) {
		return
	}
	_, err := h.users.Create(r.Context(), in)
	writeResult(w, r, err, "user_added")
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeResult(w, r, services.ErrNotFound, "")
		return
	}
	actor, _ := auth.UserIDFromContext(r.Context())
	err := h.users.Delete(r.Context(), actor, id)
	if err == nil && h.authz != nil {
		h.authz.InvalidateUser(id)
	}
	writeResult(w, r, err, "user_deleted")
}

// SetUserRole changes another user's role and drops their cached profile so
// the new role applies on the next request.
func (h *AdminHandler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeResult(w, r, services.ErrNotFound, "")
		return
	}
	var in struct {
		Role string `schema:"role"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := auth.UserIDFromContext(r.Context())
	_, err := h.users.SetRole(r.Context(), actor, id, in.Role)
	if err == nil && h.authz != nil {
		h.authz.InvalidateUser(id)
	}
	writeResult(w, r, err, "role_changed")
}

func (h *AdminHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeResult(w, r, services.ErrNotFound, "")
		return
	}
	writeResult(w, r, h.companies.Delete(r.Context(), id), "company_deleted")
}

func (h *AdminHandler) DeleteInvoiceItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeResult(w, r, services.ErrNotFound, "")
		return
	}
	writeResult(w, r, h.templates.Delete(r.Context(), id), "item_deleted")
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := r.ParseForm(); err != nil {
		httpx.Fail(w, http.StatusBadRequest, errorMessage(r, err))
		return false
	}
	if err := decoder.Decode(dst, r.PostForm); err != nil {
		httpx.Fail(w, http.StatusBadRequest, errorMessage(r, err))
		return false
	}
	return true
}
