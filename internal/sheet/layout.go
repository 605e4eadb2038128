// Package sheet writes invoices and monthly history reports as xlsx workbooks.
package sheet

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xuri/excelize/v2"
)

// Logical fields written into the invoice template.
const (
	FieldContactPerson       = "contact_person"
	FieldCompanyName         = "company_name"
	FieldAddress             = "address"
	FieldPostalPrefecture    = "postal_prefecture"
	FieldPhone               = "phone"
	FieldEmail               = "email"
	FieldInvoiceNumber       = "invoice_number"
	FieldInvoiceNumberHeader = "invoice_number_header"
	FieldCustomerID          = "customer_id"
	FieldCreatedDate         = "created_date"
)

var requiredFields = []string{
	FieldContactPerson, FieldCompanyName, FieldAddress, FieldPostalPrefecture,
	FieldPhone, FieldEmail, FieldInvoiceNumber, FieldInvoiceNumberHeader,
	FieldCustomerID, FieldCreatedDate,
}

// DetailBlock places detail rows: one row per line starting at StartRow.
// Lines past MaxRows are not written.
type DetailBlock struct {
	StartRow    int    `json:"start_row"`
	MaxRows     int    `json:"max_rows"`
	NameCol     string `json:"name_col"`
	QuantityCol string `json:"quantity_col"`
	PriceCol    string `json:"price_col"`
	AmountCol   string `json:"amount_col"`
}

// Layout maps logical fields to cell addresses in the template's active sheet.
type Layout struct {
	Cells   map[string]string `json:"cells"`
	Details DetailBlock       `json:"details"`
}

// DefaultLayout matches the stock invoice_template.xlsx.
func DefaultLayout() Layout {
	return Layout{
		Cells: map[string]string{
			FieldContactPerson:       "A8",
			FieldCompanyName:         "A9",
			FieldAddress:             "A10",
			FieldPostalPrefecture:    "A11",
			FieldPhone:               "A12",
			FieldEmail:               "A13",
			FieldInvoiceNumber:       "A16",
			FieldInvoiceNumberHeader: "F5",
			FieldCustomerID:          "F8",
			FieldCreatedDate:         "H5",
		},
		Details: DetailBlock{
			StartRow:    17,
			MaxRows:     10,
			NameCol:     "A",
			QuantityCol: "F",
			PriceCol:    "G",
			AmountCol:   "H",
		},
	}
}

// LoadLayout returns DefaultLayout overlaid with the JSON file at path.
// An empty path yields the default.
func LoadLayout(path string) (Layout, error) {
	l := DefaultLayout()
	if path == "" {
		return l, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return l, fmt.Errorf("read layout: %w", err)
	}
	if err := json.Unmarshal(b, &l); err != nil {
		return l, fmt.Errorf("parse layout %s: %w", path, err)
	}
	return l, l.Validate()
}

// Validate checks that every field has a parseable address within sheet
// bounds and that the detail block fits.
func (l Layout) Validate() error {
	for _, f := range requiredFields {
		addr, ok := l.Cells[f]
		if !ok || addr == "" {
			return fmt.Errorf("layout: missing cell for %s", f)
		}
		if _, _, err := excelize.CellNameToCoordinates(addr); err != nil {
			return fmt.Errorf("layout: %s: %w", f, err)
		}
	}
	d := l.Details
	for name, col := range map[string]string{"name_col": d.NameCol, "quantity_col": d.QuantityCol, "price_col": d.PriceCol, "amount_col": d.AmountCol} {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			return fmt.Errorf("layout: details.%s: %w", name, err)
		}
	}
	if d.StartRow < 1 || d.MaxRows < 1 || d.StartRow+d.MaxRows-1 > excelize.TotalRows {
		return fmt.Errorf("layout: detail rows %d+%d out of range", d.StartRow, d.MaxRows)
	}
	return nil
}

// detailCell returns the address for column col on detail line i.
func (d DetailBlock) detailCell(col string, i int) (string, error) {
	n, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		return "", err
	}
	return excelize.CoordinatesToCellName(n, d.StartRow+i)
}

// Fields lists the mapped fields in a stable order.
func (l Layout) Fields() []string {
	out := make([]string, 0, len(l.Cells))
	for f := range l.Cells {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
