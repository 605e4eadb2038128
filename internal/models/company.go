package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrInvalidCompanyCode = errors.New("company code must be uppercase letters and digits")

	companyCodePattern = regexp.MustCompile(`^[A-Z0-9]+$`)
	pathSeparators     = strings.NewReplacer("/", "_", `\`, "_")
)

// Company is a client company invoices are issued to.
type Company struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CompanyCode   string    `gorm:"uniqueIndex;size:20;not null" json:"company_code"`
	CompanyName   string    `gorm:"size:100;not null" json:"company_name"`
	ContactPerson string    `gorm:"size:100" json:"contact_person"`
	Address       string    `gorm:"size:200" json:"address"`
	PostalCode    string    `gorm:"size:10" json:"postal_code"`
	Prefecture    string    `gorm:"size:50" json:"prefecture"`
	Phone         string    `gorm:"size:20" json:"phone"`
	Email         string    `gorm:"size:254" json:"email"`

	Invoices []Invoice `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ValidCompanyCode reports whether code matches ^[A-Z0-9]+$.
func ValidCompanyCode(code string) bool {
	return companyCodePattern.MatchString(code)
}

// BeforeSave enforces the company code format.
func (c *Company) BeforeSave(tx *gorm.DB) error {
	if !ValidCompanyCode(c.CompanyCode) {
		return ErrInvalidCompanyCode
	}
	return nil
}

// SafeName is the company name with path separators replaced, for use in file names.
func (c *Company) SafeName() string {
	return SafeFileName(c.CompanyName)
}

// SafeFileName replaces path separators in s so it stays one file name component.
func SafeFileName(s string) string {
	return pathSeparators.Replace(s)
}

// PostalPrefecture joins postal code and prefecture the way the invoice sheet prints them.
func (c *Company) PostalPrefecture() string {
	return c.PostalCode + " " + c.Prefecture
}

// LineItemTemplate is a reusable line-item name offered in the invoice composer.
type LineItemTemplate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
}
