package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/models"
)

var tokyo = time.FixedZone("JST", 9*60*60)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory DB per test name to avoid leakage via shared cache
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newUserService(db *gorm.DB) *UserService {
	s := NewUserService(db)
	s.cost = bcrypt.MinCost
	return s
}

func mustCompany(t *testing.T, db *gorm.DB, code, name string) models.Company {
	t.Helper()
	c := models.Company{CompanyCode: code, CompanyName: name}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create company %s: %v", code, err)
	}
	return c
}

func mustInvoice(t *testing.T, db *gorm.DB, company models.Company, number string, createdAt time.Time, items ...string) models.Invoice {
	t.Helper()
	inv := models.Invoice{
		InvoiceNumber: number,
		CompanyID:     company.ID,
		CustomerID:    company.CompanyCode,
		CreatedAt:     createdAt.UTC(),
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("create invoice %s: %v", number, err)
	}
	for i, name := range items {
		d := models.InvoiceDetail{
			InvoiceID: inv.ID,
			ItemName:  name,
			Quantity:  i + 1,
			UnitPrice: decimal.NewFromInt(100),
			Order:     i,
		}
		if err := db.Create(&d).Error; err != nil {
			t.Fatalf("create detail: %v", err)
		}
	}
	return inv
}

func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
