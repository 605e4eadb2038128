package services

import (
	"fmt"
	"strconv"
	"time"
)

// FirstCompanyCode is assigned when no numeric code exists yet.
const FirstCompanyCode = "0001"

// NextCompanyCode returns max+1 over the codes that are exactly four ASCII
// digits, zero-padded to four. Other codes are ignored. The result is not
// clamped: "9999" yields "10000".
func NextCompanyCode(codes []string) string {
	highest := -1
	for _, c := range codes {
		if !isFourDigits(c) {
			continue
		}
		n, _ := strconv.Atoi(c)
		if n > highest {
			highest = n
		}
	}
	if highest < 0 {
		return FirstCompanyCode
	}
	return fmt.Sprintf("%04d", highest+1)
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// BaseInvoiceNumber formats {code}_{YYYY}_{MM}_{DD}.
func BaseInvoiceNumber(code string, t time.Time) string {
	return fmt.Sprintf("%s_%04d_%02d_%02d", code, t.Year(), int(t.Month()), t.Day())
}

// ProbeInvoiceNumber returns base if unused, else the first unused base_1, base_2, ...
func ProbeInvoiceNumber(base string, exists func(string) (bool, error)) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, n)
	}
}
