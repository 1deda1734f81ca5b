package csv

import (
	"strconv"
	"strings"
)

// ParsePrice coerces the mandatory price column. Handles "12.99" and the
// European "12,99". An unparseable or empty value yields the sentinel 0,
// matching how the catalog has always stored such rows.
func ParsePrice(value string) float64 {
	f, ok := parseReal(value)
	if !ok {
		return 0
	}
	return f
}

// ParseOptional coerces one of the optional price columns. Unparseable or
// empty values are absent, not zero.
func ParseOptional(value string) *float64 {
	f, ok := parseReal(value)
	if !ok {
		return nil
	}
	return &f
}

func parseReal(value string) (float64, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	if lastComma > lastDot {
		// European format: 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else if lastDot > lastComma {
		s = strings.ReplaceAll(s, ",", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
