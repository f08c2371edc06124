package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders an amount the way the source files display it,
// e.g. -1234.5 -> "-R$ 1.234,50".
func FormatBRL(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	s := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	return sign + "R$ " + b.String() + "," + frac
}
