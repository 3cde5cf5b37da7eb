package currency

import (
	"fmt"
	"math"
	"strings"
)

// FormatTRY renders a price the way Turkish fares are shown: dot thousands,
// comma decimals, "TL" suffix. Whole amounts drop the decimals.
func FormatTRY(amount float64) string {
	cents := math.Round(amount * 100)

	negative := cents < 0
	if negative {
		cents = -cents
	}

	whole := math.Floor(cents / 100)
	frac := int(cents - whole*100)

	result := addThousandsSeparator(fmt.Sprintf("%.0f", whole), ".")
	if frac != 0 {
		result += fmt.Sprintf(",%02d", frac)
	}
	result += " TL"

	if negative {
		result = "-" + result
	}
	return result
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	b.Grow(n + (n-1)/3)

	lead := n % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < n; i += 3 {
		b.WriteString(sep)
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
