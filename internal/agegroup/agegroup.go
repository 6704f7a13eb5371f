// Package agegroup converts USCS age-group labels ("1-4", "85+", "All Ages")
// into numeric ages.
package agegroup

import (
	"math"
	"strconv"
	"strings"
)

const (
	// AllAges is the label of the aggregate row
	AllAges = "All Ages"

	// AllAgesStart is what Start reports for AllAges. It is not a real age
	// and callers exclude it before ordering.
	AllAgesStart = -1.0

	// OpenEndedWidth is the implied width of an open-ended group like "85+"
	OpenEndedWidth = 5.0
)

// Start returns the lower bound of an age group. "All Ages" yields
// AllAgesStart. ok is false when the label cannot be parsed.
func Start(label string) (start float64, ok bool) {
	label = strings.TrimSpace(label)
	if label == AllAges {
		return AllAgesStart, true
	}
	if lo, ok := openEnded(label); ok {
		return lo, true
	}
	if lo, _, ok := closedRange(label); ok {
		return lo, true
	}
	return math.NaN(), false
}

// Midpoint returns the centre of an age group. Open-ended groups are taken
// to span OpenEndedWidth years. "All Ages" has no midpoint.
func Midpoint(label string) (mid float64, ok bool) {
	label = strings.TrimSpace(label)
	if label == AllAges {
		return math.NaN(), false
	}
	if lo, ok := openEnded(label); ok {
		return lo + OpenEndedWidth/2, true
	}
	if lo, hi, ok := closedRange(label); ok {
		return (lo + hi) / 2, true
	}
	return math.NaN(), false
}

func openEnded(label string) (float64, bool) {
	if !strings.HasSuffix(label, "+") {
		return 0, false
	}
	return parseBound(strings.TrimSuffix(label, "+"))
}

func closedRange(label string) (lo, hi float64, ok bool) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	if lo, ok = parseBound(parts[0]); !ok {
		return 0, 0, false
	}
	if hi, ok = parseBound(parts[1]); !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

func parseBound(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
