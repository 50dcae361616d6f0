package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ClampQuantity parses a quantity typed by staff. Zero, negative or non-numeric input yields 1.
func ClampQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return ClampQuantityInt(n)
}

// ClampQuantityInt enforces quantity >= 1.
func ClampQuantityInt(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ParseAmount parses a manually entered money amount.
// Accepts "12.50", "12,50", "1.234,56" and a leading currency sign. Negative amounts are rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "$€£")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	d, err := decimal.NewFromString(normalizeDecimal(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %q", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative, got: %s", d.String())
	}
	return d, nil
}

// normalizeDecimal converts European decimal format to standard format.
// "0,8" → "0.8", "1.234,56" → "1234.56", "1,234.56" → "1234.56", "1.5" → "1.5"
func normalizeDecimal(s string) string {
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		// European: dot is thousands, comma is decimal
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		// US thousands separator
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	return s
}
