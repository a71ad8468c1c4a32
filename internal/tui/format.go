package tui

import (
	"math"
	"strconv"
	"strings"
)

// formatMoney renders a trade value given in thousands of USD.
// Values of a billion and up print as "$1.2B", the rest as "$850M".
// At most one fractional digit is kept and thousands are comma-separated.
func formatMoney(thousands float64) string {
	if math.IsNaN(thousands) || math.IsInf(thousands, 0) {
		thousands = 0
	}
	if thousands >= 1_000_000 {
		return "$" + groupDigits(thousands/1_000_000) + "B"
	}
	return "$" + groupDigits(thousands/1000) + "M"
}

// groupDigits rounds v to one decimal and inserts thousands separators.
func groupDigits(v float64) string {
	v = math.Round(v*10) / 10
	s := strconv.FormatFloat(v, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
