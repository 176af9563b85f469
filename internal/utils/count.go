// internal/utils/count.go
package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	abbreviatedCount = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*([kmb])\b`)
	groupedCount     = regexp.MustCompile(`\d+(?:,\d{3})*`)
)

// ParseCount reads engagement counters rendered as "1,234", "1.2K" or
// "3 comments". Text without a number yields 0.
func ParseCount(text string) int {
	text = strings.TrimSpace(text)

	if m := abbreviatedCount.FindStringSubmatch(text); m != nil {
		if num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			multiplier := 1.0
			switch strings.ToLower(m[2]) {
			case "k":
				multiplier = 1e3
			case "m":
				multiplier = 1e6
			case "b":
				multiplier = 1e9
			}
			return int(math.Round(num * multiplier))
		}
	}

	if match := groupedCount.FindString(text); match != "" {
		if num, err := strconv.Atoi(strings.ReplaceAll(match, ",", "")); err == nil {
			return num
		}
	}
	return 0
}
