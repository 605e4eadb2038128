package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LineInput is one parsed detail row from the invoice composer.
type LineInput struct {
	ItemName  string
	Quantity  int
	UnitPrice decimal.Decimal
	// Amount is what the client displayed; the stored amount is always recomputed.
	Amount decimal.Decimal
	Order  int
}

// ParseLines zips the name, quantity and price arrays to the shortest of the
// three and parses each row. amounts may be shorter or nil. Rows missing a
// name, quantity or price are skipped. Order is the zero-based position in the
// submitted arrays, so skipped rows leave gaps.
func ParseLines(names, quantities, prices, amounts []string) ([]LineInput, error) {
	n := min(len(names), len(quantities), len(prices))
	out := make([]LineInput, 0, n)
	for i := 0; i < n; i++ {
		name := strings.TrimSpace(names[i])
		qty := strings.TrimSpace(quantities[i])
		price := strings.TrimSpace(prices[i])
		if name == "" || qty == "" || price == "" {
			continue
		}
		q, err := strconv.Atoi(qty)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d quantity %q", ErrInvalidLine, i+1, qty)
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d price %q", ErrInvalidLine, i+1, price)
		}
		line := LineInput{ItemName: name, Quantity: q, UnitPrice: p, Order: i}
		if a := at(amounts, i); a != "" {
			if line.Amount, err = decimal.NewFromString(a); err != nil {
				return nil, fmt.Errorf("%w: row %d amount %q", ErrInvalidLine, i+1, a)
			}
		} else {
			line.Amount = p.Mul(decimal.NewFromInt(int64(q)))
		}
		out = append(out, line)
	}
	return out, nil
}

func at(values []string, i int) string {
	if i < len(values) {
		return strings.TrimSpace(values[i])
	}
	return ""
}
