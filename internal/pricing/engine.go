package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is expressed in cents.
type Money = int64

// FriesSurcharge is the flat price of adding fries to any item.
const FriesSurcharge Money = 600

// DefaultTaxBps is the sales tax applied to cart subtotals (8%).
const DefaultTaxBps = 800

// ErrInvalidAmount is returned when a decimal amount cannot be represented in cents.
var ErrInvalidAmount = errors.New("pricing: invalid amount")

// Line is a priced cart line.
type Line struct {
	Qty       int
	UnitPrice Money
}

// Summary carries the order level totals.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

// Compute sums the lines and applies taxBps (basis points) rounded half up to the cent.
func Compute(lines []Line, taxBps int) Summary {
	var subtotal Money
	for _, line := range lines {
		if line.Qty <= 0 || line.UnitPrice < 0 {
			continue
		}
		subtotal += Money(line.Qty) * line.UnitPrice
	}
	if taxBps < 0 {
		taxBps = 0
	}
	tax := (subtotal*Money(taxBps) + 5000) / 10000
	return Summary{Subtotal: subtotal, Tax: tax, Total: subtotal + tax}
}

// Format renders cents as a two decimal string, e.g. 1250 -> "12.50".
func Format(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}

// maxUnits is the largest whole amount whose cents still fit in Money.
const maxUnits = (math.MaxInt64 - 99) / 100

// Parse converts a non-negative decimal string with at most two fractional
// digits into cents. "12", "12.5" and "12.50" all parse.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	units, err := strconv.ParseUint(whole, 10, 64)
	if err != nil || units > maxUnits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	var cents uint64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseUint(frac, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	return Money(units*100 + cents), nil
}
