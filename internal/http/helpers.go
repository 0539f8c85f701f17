package http

import (
	"math"
	"strconv"
	"strings"
)

// formatBRL renders v as Brazilian reais, e.g. "R$ 1.234,56". At least two
// and at most three fraction digits are shown.
func formatBRL(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	neg := v < 0
	if neg {
		v = -v
	}

	milli := int64(math.Round(v * 1000))
	whole := milli / 1000
	frac := milli % 1000

	fraction := strconv.FormatInt(frac+1000, 10)[1:]
	fraction = strings.TrimSuffix(fraction, "0")
	if len(fraction) < 2 {
		fraction += "0"
	}

	s := "R$ " + groupThousands(whole) + "," + fraction
	if neg && milli != 0 {
		return "-" + s
	}
	return s
}

func groupThousands(n int64) string {
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// formatScore renders an average satisfaction score with two decimals.
func formatScore(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
