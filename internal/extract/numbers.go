package extract

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber parses an amount after removing thousands separators.
// Anything that is not a complete number, or does not fit a float64, yields
// an invalid (null) value.
func ParseNumber(s string) decimal.NullDecimal {
	d, ok := parseDecimal(s)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if f := d.InexactFloat64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseOptional(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	return ParseNumber(*s)
}
