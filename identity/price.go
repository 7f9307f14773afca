package identity

import (
	"math"
	"strconv"
	"strings"
)

// ParsePrice reads a free-text price such as "$1,250,000" or "1250000.00".
// Every character except digits and the first decimal point is stripped, so the
// result is never negative. ok is false when nothing numeric remains.
func ParsePrice(s string) (float64, bool) {
	var b strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), ".")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RoundTo rounds v to the nearest multiple of step
func RoundTo(v float64, step int64) int64 {
	if step <= 0 {
		return int64(math.Round(v))
	}
	return int64(math.Round(v/float64(step))) * step
}
