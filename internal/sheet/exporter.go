package sheet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/diewo77/sheet-invoices/internal/models"
	"github.com/diewo77/sheet-invoices/internal/services"
)

// ErrTemplateMissing is returned when the invoice template workbook cannot be found.
var ErrTemplateMissing = errors.New("template_missing")

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	invoiceDateLayout   = "2006年01月02日"
	historyTimeLayout   = "2006-01-02 15:04"
	defaultHistorySheet = "Sheet1"
)

var historyHeaders = []string{"請求書番号", "作成日時", "請求内容", "個数", "単価", "金額"}

// Exporter produces invoice and history workbooks.
type Exporter struct {
	templatePath string
	outputDir    string
	layout       Layout
	loc          *time.Location
}

// NewExporter returns an exporter filling templatePath according to layout and
// saving into outputDir. Dates are rendered in loc.
func NewExporter(templatePath, outputDir string, layout Layout, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{templatePath: templatePath, outputDir: outputDir, layout: layout, loc: loc}
}

func (e *Exporter) OutputDir() string { return e.outputDir }

// CheckTemplate opens the template and verifies it has an active sheet and
// that the layout fits it.
func (e *Exporter) CheckTemplate() error {
	if err := e.layout.Validate(); err != nil {
		return err
	}
	f, err := e.openTemplate()
	if err != nil {
		return err
	}
	defer f.Close()
	if f.GetSheetName(f.GetActiveSheetIndex()) == "" {
		return fmt.Errorf("template %s has no active sheet", e.templatePath)
	}
	return nil
}

func (e *Exporter) openTemplate() (*excelize.File, error) {
	if _, err := os.Stat(e.templatePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTemplateMissing
		}
		return nil, fmt.Errorf("stat template: %w", err)
	}
	f, err := excelize.OpenFile(e.templatePath)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", e.templatePath, err)
	}
	return f, nil
}

// FillInvoice writes the company identity block, invoice number, customer id,
// date and detail rows into a copy of the template. Details beyond the
// layout's MaxRows are left out of the sheet.
func (e *Exporter) FillInvoice(company *models.Company, inv *models.Invoice, details []models.InvoiceDetail, now time.Time) (*Document, error) {
	f, err := e.openTemplate()
	if err != nil {
		return nil, err
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	values := map[string]any{
		FieldContactPerson:       company.ContactPerson,
		FieldCompanyName:         company.CompanyName,
		FieldAddress:             company.Address,
		FieldPostalPrefecture:    company.PostalPrefecture(),
		FieldPhone:               company.Phone,
		FieldEmail:               company.Email,
		FieldInvoiceNumber:       inv.InvoiceNumber,
		FieldInvoiceNumberHeader: inv.InvoiceNumber,
		FieldCustomerID:          inv.CustomerID,
		FieldCreatedDate:         now.In(e.loc).Format(invoiceDateLayout),
	}
	for _, field := range e.layout.Fields() {
		v, ok := values[field]
		if !ok {
			continue
		}
		if err := f.SetCellValue(sheet, e.layout.Cells[field], v); err != nil {
			f.Close()
			return nil, fmt.Errorf("set %s: %w", field, err)
		}
	}

	d := e.layout.Details
	if len(details) > d.MaxRows {
		log.Debugf("Invoice %s: %d lines, only %d written to sheet", inv.InvoiceNumber, len(details), d.MaxRows)
		details = details[:d.MaxRows]
	}
	for i, line := range details {
		cells := []struct {
			col string
			v   any
		}{
			{d.NameCol, line.ItemName},
			{d.QuantityCol, line.Quantity},
			{d.PriceCol, line.UnitPrice.InexactFloat64()},
			{d.AmountCol, line.Amount.InexactFloat64()},
		}
		for _, c := range cells {
			addr, err := d.detailCell(c.col, i)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellValue(sheet, addr, c.v); err != nil {
				f.Close()
				return nil, fmt.Errorf("set detail %s: %w", addr, err)
			}
		}
	}

	name := fmt.Sprintf("invoice_%s_%s_%s.xlsx", company.SafeName(), company.CompanyCode, models.SafeFileName(inv.InvoiceNumber))
	return newDocument(f, e.outputDir, name), nil
}

// HistorySheetName is the worksheet title of a monthly report.
func HistorySheetName(year, month int) string {
	return fmt.Sprintf("%d年%d月分", year, month)
}

// BuildMonthlyHistory writes rows into a fresh workbook with one row per
// invoice detail under a bold header row.
func (e *Exporter) BuildMonthlyHistory(company *models.Company, year, month int, rows []services.HistoryRow) (*Document, error) {
	f := excelize.NewFile()
	sheet := HistorySheetName(year, month)
	if err := f.SetSheetName(defaultHistorySheet, sheet); err != nil {
		f.Close()
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := sw.SetColWidth(1, 3, 20); err != nil {
		f.Close()
		return nil, err
	}

	header := make([]any, len(historyHeaders))
	for i, h := range historyHeaders {
		header[i] = excelize.Cell{StyleID: style, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		f.Close()
		return nil, err
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			r.InvoiceNumber,
			r.CreatedAt.In(e.loc).Format(historyTimeLayout),
			r.ItemName,
			r.Quantity,
			r.UnitPrice.InexactFloat64(),
			r.Amount.InexactFloat64(),
		}
		if err := sw.SetRow(cell, row); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		f.Close()
		return nil, err
	}

	name := fmt.Sprintf("invoice_%s_%s_%s.xlsx", company.SafeName(), company.CompanyCode, sheet)
	return newDocument(f, e.outputDir, name), nil
}

// Document is a generated workbook not yet written anywhere.
type Document struct {
	Filename string

	file *excelize.File
	dir  string
}

func newDocument(f *excelize.File, dir, name string) *Document {
	return &Document{Filename: filepath.Base(name), file: f, dir: dir}
}

// Save writes the workbook into the output directory and returns its path.
func (d *Document) Save() (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(d.dir, d.Filename)
	if err := d.file.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", d.Filename, err)
	}
	return path, nil
}

// WriteTo streams the workbook to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.file.WriteTo(w)
}

func (d *Document) Close() error {
	return d.file.Close()
}

// WriteBlankTemplate creates an invoice template with captions around the
// cells of layout. It is used to bootstrap a deployment without a designed
// template.
func WriteBlankTemplate(path string, layout Layout) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	if err := f.SetCellValue(sheet, "A1", "請求書"); err != nil {
		return err
	}
	taken := make(map[string]bool, len(layout.Cells))
	for _, addr := range layout.Cells {
		taken[addr] = true
	}
	d := layout.Details
	if d.StartRow > 1 {
		captions := []struct{ col, text string }{
			{d.NameCol, "品名"},
			{d.QuantityCol, "数量"},
			{d.PriceCol, "単価"},
			{d.AmountCol, "金額"},
		}
		for _, c := range captions {
			addr, err := d.detailCell(c.col, -1)
			if err != nil {
				return err
			}
			if taken[addr] {
				continue
			}
			if err := f.SetCellValue(sheet, addr, c.text); err != nil {
				return err
			}
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
