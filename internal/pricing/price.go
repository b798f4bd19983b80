package pricing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// nonNumeric matches everything a currency string carries besides the amount.
var nonNumeric = regexp.MustCompile(`[^\d.-]`)

// ParsePrice parses a display price such as "$3.99", "$.99" or "1,299.00".
// Symbols and grouping separators are ignored.
func ParsePrice(s string) (decimal.Decimal, error) {
	cleaned := nonNumeric.ReplaceAllString(strings.TrimSpace(s), "")
	switch {
	case cleaned == "", cleaned == "-", cleaned == ".", cleaned == "-.":
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedPrice, s)
	case strings.HasPrefix(cleaned, "."):
		cleaned = "0" + cleaned
	case strings.HasPrefix(cleaned, "-."):
		cleaned = "-0" + cleaned[1:]
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedPrice, s)
	}
	return d, nil
}

// currencyPrefix returns whatever precedes the amount ("$" in "$3.99").
func currencyPrefix(s string) string {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r >= '0' && r <= '9') || r == '.' || r == '-'
	})
	if i < 0 {
		return ""
	}
	return s[:i]
}

// FormatPrice renders an amount at cent precision behind the given prefix.
func FormatPrice(amount decimal.Decimal, prefix string) string {
	return prefix + amount.Round(2).StringFixed(2)
}
