package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoTimestamp is returned by ParseTimestamp for an empty field.
const NoTimestamp = -1

// ParseTimestamp reads "H:MM:SS", "MM:SS" or plain seconds. An empty value
// yields NoTimestamp.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoTimestamp, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid timestamp %q: field out of range", s)
		}
		total = total*60 + v
	}
	return total, nil
}

// FormatTimestamp renders seconds as "H:MM:SS". Fractions are truncated.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		return ""
	}
	s := int64(seconds)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}

// FormatClock renders seconds as "MM:SS", letting minutes exceed 59.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int64(seconds)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
