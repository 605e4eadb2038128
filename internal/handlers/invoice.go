package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/httpx"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/services"
	"github.com/diewo77/sheet-invoices/internal/sheet"
	"github.com/diewo77/sheet-invoices/view"
)

// HistoryForm is the monthly export form. Year and month default to the
// current date when blank.
type HistoryForm struct {
	CompanyCode string `schema:"company_code"`
	Year        string `schema:"year"`
	Month       string `schema:"month"`
}

// InvoiceHandler serves the composer and the two spreadsheet downloads.
type InvoiceHandler struct {
	companies *services.CompanyService
	templates *services.TemplateService
	invoices  *services.InvoiceService
	history   *services.HistoryService
	exporter  *sheet.Exporter
	flash     *middleware.Flasher
	loc       *time.Location
	now       func() time.Time
}

func NewInvoiceHandler(companies *services.CompanyService, templates *services.TemplateService, invoices *services.InvoiceService,
	history *services.HistoryService, exporter *sheet.Exporter, flash *middleware.Flasher, loc *time.Location) *InvoiceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceHandler{
		companies: companies,
		templates: templates,
		invoices:  invoices,
		history:   history,
		exporter:  exporter,
		flash:     flash,
		loc:       loc,
		now:       time.Now,
	}
}

// Compose renders the invoice composer for any signed-in user.
func (h *InvoiceHandler) Compose(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		log.Errorf("list companies: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	items, err := h.templates.List(r.Context())
	if err != nil {
		log.Errorf("list line items: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	now := h.now().In(h.loc)
	view.Render(w, r, "create_invoice.html", map[string]any{
		"companies":     companies,
		"invoice_items": items,
		"year":          now.Year(),
		"month":         int(now.Month()),
	})
}

// CompanyInfo looks a company up by code for the composer's identity block.
func (h *InvoiceHandler) CompanyInfo(w http.ResponseWriter, r *http.Request) {
	company, err := h.companies.FindByCode(r.Context(), r.URL.Query().Get("company_code"))
	if err != nil {
		if !isAny(err, notFounds) {
			log.Errorf("company info: %v", err)
		}
		httpx.Fail(w, http.StatusOK, errorMessage(r, err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"company": map[string]string{
			"company_name":   company.CompanyName,
			"contact_person": company.ContactPerson,
			"address":        company.Address,
			"postal_code":    company.PostalCode,
			"prefecture":     company.Prefecture,
			"phone":          company.Phone,
			"email":          company.Email,
			"company_code":   company.CompanyCode,
		},
	})
}

// Generate stores the submitted invoice, fills the template and streams the
// workbook back. The invoice stays stored even when the template is missing.
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	form := r.PostForm
	lines, err := services.ParseLines(form["item_name[]"], form["item_quantity[]"], form["item_price[]"], form["item_amount[]"])
	if err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.invoices.Generate(r.Context(), services.GenerateRequest{
		CompanyCode:   form.Get("company_code"),
		InvoiceNumber: strings.TrimSpace(form.Get("invoice_number")),
		Lines:         lines,
		CreatedByID:   uid,
	})
	if err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}

	doc, err := h.exporter.FillInvoice(inv.Company, inv, inv.Details, h.now())
	if err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	h.deliver(w, r, doc, "invoice_created")
}

// ExportHistory streams a company's invoices of one month as a workbook.
func (h *InvoiceHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	var form HistoryForm
	if err := r.ParseForm(); err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	if err := decoder.Decode(&form, r.PostForm); err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	now := h.now().In(h.loc)
	year, err := intOr(form.Year, now.Year())
	if err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	month, err := intOr(form.Month, int(now.Month()))
	if err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}

	rows, company, err := h.history.Monthly(r.Context(), form.CompanyCode, year, month)
	if err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	doc, err := h.exporter.BuildMonthlyHistory(company, year, month, rows)
	if err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	h.deliver(w, r, doc, "history_exported")
}

// deliver saves doc to the output directory and streams it as an attachment.
func (h *InvoiceHandler) deliver(w http.ResponseWriter, r *http.Request, doc *sheet.Document, successCode string) {
	defer doc.Close()
	path, err := doc.Save()
	if err != nil {
		failRedirect(w, r, h.flash, err)
		return
	}
	log.Infof("Wrote %s", path)
	h.flash.Code(w, r, middleware.FlashSuccess, successCode)
	if err := httpx.Attachment(w, doc.Filename, sheet.ContentType, doc); err != nil {
		log.Errorf("stream %s: %v", doc.Filename, err)
	}
}

func intOr(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
