package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/models"
)

// HistoryRow is one invoice × detail pair of a monthly report.
type HistoryRow struct {
	InvoiceNumber string
	CreatedAt     time.Time
	ItemName      string
	Quantity      int
	UnitPrice     decimal.Decimal
	Amount        decimal.Decimal
}

type HistoryService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewHistoryService creates a service whose calendar months are taken in loc.
func NewHistoryService(db *gorm.DB, loc *time.Location) *HistoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryService{db: db, loc: loc}
}

// MonthRange returns the [start, end) bounds of a calendar month in loc, as UTC.
func MonthRange(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

// Monthly flattens a company's invoices created in the given month into rows,
// ordered by invoice creation then detail order. An unknown company, an
// invalid month and an empty month all yield ErrHistoryNotFound.
func (s *HistoryService) Monthly(ctx context.Context, code string, year, month int) ([]HistoryRow, *models.Company, error) {
	if month < 1 || month > 12 {
		return nil, nil, ErrHistoryNotFound
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	var company models.Company
	if err := s.db.WithContext(ctx).Where("company_code = ?", code).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrHistoryNotFound
		}
		return nil, nil, fmt.Errorf("find company %s: %w", code, err)
	}

	start, end := MonthRange(year, month, s.loc)
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Details", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC, id ASC") }).
		Where("company_id = ? AND created_at >= ? AND created_at < ?", company.ID, start, end).
		Order("created_at ASC, id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, nil, fmt.Errorf("load invoices: %w", err)
	}
	if len(invoices) == 0 {
		return nil, &company, ErrHistoryNotFound
	}

	var rows []HistoryRow
	for _, inv := range invoices {
		for _, d := range inv.Details {
			rows = append(rows, HistoryRow{
				InvoiceNumber: inv.InvoiceNumber,
				CreatedAt:     inv.CreatedAt.In(s.loc),
				ItemName:      d.ItemName,
				Quantity:      d.Quantity,
				UnitPrice:     d.UnitPrice,
				Amount:        d.Amount,
			})
		}
	}
	log.Debugf("History %s %d-%02d: %d invoices, %d rows", code, year, month, len(invoices), len(rows))
	return rows, &company, nil
}
