package generic

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer cents
// =============================================================================
//
// Every amount in the document is an int64 number of cents. Decimal is only
// used at the edges: parsing user input and rounding percentage shares.

const DefaultSplitPercent = 50

var hundred = decimal.NewFromInt(100)

// ParseCents converts "12.34", "12,34", "1 234,5" or "-3" to cents.
// Fractions beyond the cent are rounded half away from zero.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".").Replace(s)
	if s == "" || strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt64 / 2)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// FormatCents renders cents as a plain decimal string ("1234.56").
func FormatCents(c int64) string {
	return decimal.New(c, -2).StringFixed(2)
}

// ClampSplit turns a stored split percentage into the integer used for shares.
// Missing or non-finite values fall back to 50.
func ClampSplit(p *float64) int {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return DefaultSplitPercent
	}
	v := math.Round(*p)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// ShareCents returns round(amount * split / 100).
func ShareCents(amount int64, split int) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(split))).
		Div(hundred).
		Round(0).
		IntPart()
}

func MaxCents(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
