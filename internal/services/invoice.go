package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/models"
)

// GenerateRequest carries a validated invoice composer submission.
type GenerateRequest struct {
	CompanyCode string
	// InvoiceNumber overrides the generated number when non-empty. It is not probed.
	InvoiceNumber string
	Lines         []LineInput
	CreatedByID   uint
}

type InvoiceService struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// NewInvoiceService creates a service that dates invoice numbers in loc.
func NewInvoiceService(db *gorm.DB, loc *time.Location) *InvoiceService {
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceService{db: db, loc: loc, now: time.Now}
}

// NextNumber returns the collision-free invoice number for code at t.
func (s *InvoiceService) NextNumber(ctx context.Context, code string, t time.Time) (string, error) {
	base := BaseInvoiceNumber(code, t.In(s.loc))
	return ProbeInvoiceNumber(base, func(candidate string) (bool, error) {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.Invoice{}).
			Where("invoice_number = ?", candidate).Count(&count).Error
		return count > 0, err
	})
}

// Generate persists an invoice header and its detail rows and returns the
// invoice with Company and Details loaded. Header and details are written in
// separate statements: a detail failure leaves the header in place.
func (s *InvoiceService) Generate(ctx context.Context, req GenerateRequest) (*models.Invoice, error) {
	code := strings.ToUpper(strings.TrimSpace(req.CompanyCode))
	var company models.Company
	if err := s.db.WithContext(ctx).Where("company_code = ?", code).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("find company %s: %w", code, err)
	}

	now := s.now()
	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" {
		var err error
		if number, err = s.NextNumber(ctx, company.CompanyCode, now); err != nil {
			return nil, fmt.Errorf("probe invoice number: %w", err)
		}
	}

	invoice := models.Invoice{
		InvoiceNumber: number,
		CompanyID:     company.ID,
		CustomerID:    company.CompanyCode,
	}
	if req.CreatedByID != 0 {
		uid := req.CreatedByID
		invoice.CreatedByID = &uid
	}
	if err := s.db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, fmt.Errorf("create invoice %s: %w", number, err)
	}

	details := make([]models.InvoiceDetail, 0, len(req.Lines))
	for _, l := range req.Lines {
		details = append(details, models.InvoiceDetail{
			InvoiceID: invoice.ID,
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Amount:    l.Amount,
			Order:     l.Order,
		})
	}
	if len(details) > 0 {
		if err := s.db.WithContext(ctx).Create(&details).Error; err != nil {
			return nil, fmt.Errorf("create details for %s: %w", number, err)
		}
	}
	invoice.Company = &company
	invoice.Details = details
	log.Infof("Invoice %s created for %s with %d lines", number, company.CompanyCode, len(details))
	return &invoice, nil
}

// Recent lists the latest invoices, newest first.
func (s *InvoiceService) Recent(ctx context.Context, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).Preload("Company").
		Order("created_at DESC, id DESC").Limit(limit).Find(&invoices).Error
	return invoices, err
}
