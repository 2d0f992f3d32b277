// Package util provides small argument helpers shared by the command handlers.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// ParseFloat parses a finite float argument. Surrounding quotes and spaces are ignored.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(TrimQuotes(strings.TrimSpace(s)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q: not finite", s)
	}
	return v, nil
}

// ParseCount parses a strictly positive integer argument.
func ParseCount(s string) (int, error) {
	n, err := strconv.Atoi(TrimQuotes(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid count %q: must be at least 1", s)
	}
	return n, nil
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
