package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is an issued invoice header. Created once, never edited.
type Invoice struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	InvoiceNumber string    `gorm:"uniqueIndex;size:50;not null" json:"invoice_number"`

	CompanyID uint     `gorm:"index;not null" json:"company_id"`
	Company   *Company `json:"company,omitempty"`

	// CustomerID copies the company code at creation time.
	CustomerID string `gorm:"size:50" json:"customer_id"`

	// CreatedByID is nulled when the author is deleted.
	CreatedByID *uint `gorm:"index" json:"created_by_id,omitempty"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"-"`

	Details []InvoiceDetail `gorm:"constraint:OnDelete:CASCADE" json:"details,omitempty"`
}

// Total sums the detail amounts.
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range i.Details {
		total = total.Add(d.Amount)
	}
	return total
}

// InvoiceDetail is one line of an invoice.
type InvoiceDetail struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	InvoiceID uint            `gorm:"index;not null" json:"invoice_id"`
	ItemName  string          `gorm:"size:100;not null" json:"item_name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Order     int             `gorm:"column:sort_order;not null;default:0" json:"order"`
}

// ComputeAmount returns Quantity × UnitPrice.
func (d *InvoiceDetail) ComputeAmount() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// BeforeSave always recomputes Amount; any caller-supplied value is discarded.
func (d *InvoiceDetail) BeforeSave(tx *gorm.DB) error {
	d.Amount = d.ComputeAmount()
	return nil
}
