package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/models"
	"github.com/diewo77/sheet-invoices/validation"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// CompanyInput is the admin "add company" form. The code is always assigned.
type CompanyInput struct {
	CompanyName   string `schema:"company_name"`
	ContactPerson string `schema:"contact_person"`
	Address       string `schema:"address"`
	PostalCode    string `schema:"postal_code"`
	Prefecture    string `schema:"prefecture"`
	Phone         string `schema:"phone"`
	Email         string `schema:"email"`
}

// Normalize strips hyphens from the postal code and everything but digits from the phone number.
func (in *CompanyInput) Normalize() {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.ContactPerson = strings.TrimSpace(in.ContactPerson)
	in.Address = strings.TrimSpace(in.Address)
	in.PostalCode = strings.ReplaceAll(strings.TrimSpace(in.PostalCode), "-", "")
	in.Prefecture = strings.TrimSpace(in.Prefecture)
	in.Phone = nonDigits.ReplaceAllString(in.Phone, "")
	in.Email = strings.TrimSpace(in.Email)
}

func (in *CompanyInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("company_name", in.CompanyName, v)
	validation.MaxLen("company_name", in.CompanyName, 100, v)
	validation.MaxLen("contact_person", in.ContactPerson, 100, v)
	validation.MaxLen("address", in.Address, 200, v)
	validation.MaxLen("postal_code", in.PostalCode, 10, v)
	validation.MaxLen("prefecture", in.Prefecture, 50, v)
	validation.MaxLen("phone", in.Phone, 20, v)
	validation.Email("email", in.Email, v)
	return v
}

type CompanyService struct {
	db *gorm.DB
}

func NewCompanyService(db *gorm.DB) *CompanyService {
	return &CompanyService{db: db}
}

// NextCode scans every stored code. Nothing is reserved: two concurrent
// creations may compute the same code and the loser fails on the unique index.
func (s *CompanyService) NextCode(ctx context.Context) (string, error) {
	var codes []string
	if err := s.db.WithContext(ctx).Model(&models.Company{}).Pluck("company_code", &codes).Error; err != nil {
		return "", err
	}
	return NextCompanyCode(codes), nil
}

// Create normalises the input, assigns the next code and stores the company.
func (s *CompanyService) Create(ctx context.Context, in CompanyInput) (*models.Company, error) {
	in.Normalize()
	if v := in.validate(); !v.Empty() {
		return nil, v
	}
	code, err := s.NextCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("next company code: %w", err)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Company{}).Where("company_code = ?", code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCompanyCodeTaken
	}
	company := models.Company{
		CompanyCode:   code,
		CompanyName:   in.CompanyName,
		ContactPerson: in.ContactPerson,
		Address:       in.Address,
		PostalCode:    in.PostalCode,
		Prefecture:    in.Prefecture,
		Phone:         in.Phone,
		Email:         in.Email,
	}
	if err := s.db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, fmt.Errorf("create company %s: %w", code, err)
	}
	log.Infof("Company %s (%s) created", company.CompanyCode, company.CompanyName)
	return &company, nil
}

// Delete removes a company together with its invoices and their details.
func (s *CompanyService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company models.Company
		if err := tx.First(&company, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		invoiceIDs := tx.Model(&models.Invoice{}).Select("id").Where("company_id = ?", id)
		if err := tx.Where("invoice_id IN (?)", invoiceIDs).Delete(&models.InvoiceDetail{}).Error; err != nil {
			return fmt.Errorf("delete details: %w", err)
		}
		if err := tx.Where("company_id = ?", id).Delete(&models.Invoice{}).Error; err != nil {
			return fmt.Errorf("delete invoices: %w", err)
		}
		if err := tx.Delete(&company).Error; err != nil {
			return err
		}
		log.Infof("Company %s deleted", company.CompanyCode)
		return nil
	})
}

// List returns all companies ordered by code.
func (s *CompanyService) List(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := s.db.WithContext(ctx).Order("company_code ASC").Find(&companies).Error
	return companies, err
}

// FindByCode looks a company up by its code, case-insensitively.
func (s *CompanyService) FindByCode(ctx context.Context, code string) (*models.Company, error) {
	var company models.Company
	err := s.db.WithContext(ctx).Where("company_code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}
