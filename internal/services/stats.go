package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/models"
)

// Stats are the admin dashboard counters.
type Stats struct {
	Companies       int64  `json:"companies"`
	LineItems       int64  `json:"line_items"`
	Users           int64  `json:"users"`
	Invoices        int64  `json:"invoices"`
	NextCompanyCode string `json:"next_company_code"`
}

type StatsService struct {
	db        *gorm.DB
	companies *CompanyService
}

func NewStatsService(db *gorm.DB, companies *CompanyService) *StatsService {
	return &StatsService{db: db, companies: companies}
}

// Collect counts every registry and computes the next company code.
func (s *StatsService) Collect(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.Company{}, &st.Companies},
		{&models.LineItemTemplate{}, &st.LineItems},
		{&models.User{}, &st.Users},
		{&models.Invoice{}, &st.Invoices},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(c.model).Count(c.dst).Error; err != nil {
			return st, err
		}
	}
	code, err := s.companies.NextCode(ctx)
	if err != nil {
		return st, err
	}
	st.NextCompanyCode = code
	return st, nil
}
