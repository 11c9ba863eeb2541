package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatEth renders an ETH amount with up to four decimals and no
// trailing zeros. NaN marks a value no listing could price.
func FormatEth(v float64) string {
	if math.IsNaN(v) {
		return "unknown"
	}
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s + " ETH"
}

// FormatScore renders a rarity score, with the traitless sentinel
// spelled out.
func FormatScore(score int) string {
	if score < 0 {
		return "no traits"
	}
	return strconv.Itoa(score)
}

// FormatPercentile renders a 0..100 percentile for display.
func FormatPercentile(p float64) string {
	if math.IsNaN(p) {
		return "unknown"
	}
	return fmt.Sprintf("%.1f%%", p)
}
