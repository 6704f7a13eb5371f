// Package incidence reduces USCS tables to the series the model consumes:
// age-incidence curves and annual age-adjusted rate trends.
package incidence

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"oncofit/adapters/uscs"
	"oncofit/domain/core"
	domain "oncofit/domain/incidence"
	"oncofit/internal"
	"oncofit/internal/agegroup"
)

// Selection picks one age-incidence curve out of a BYAGE table.
// Empty string fields are not filtered on.
type Selection struct {
	Year      int
	Site      string
	EventType string
	Race      string
	Sex       string
}

// DefaultSelection is incidence for all races, both sexes and all sites
// combined in 2020.
func DefaultSelection() Selection {
	return Selection{
		Year:      2020,
		Site:      "All Cancer Sites Combined",
		EventType: "Incidence",
		Race:      "All Races",
		Sex:       "Male and Female",
	}
}

func (s Selection) matches(row uscs.Row) bool {
	return matchField(row, uscs.ColSite, s.Site) &&
		matchField(row, uscs.ColEventType, s.EventType) &&
		matchField(row, uscs.ColRace, s.Race) &&
		matchField(row, uscs.ColSex, s.Sex)
}

func matchField(row uscs.Row, column, want string) bool {
	return want == "" || row[column] == want
}

// Extractor turns tables into curves
type Extractor struct {
	logger *internal.Logger
}

// NewExtractor creates an extractor; a nil logger uses the default one
func NewExtractor(logger *internal.Logger) *Extractor {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Extractor{logger: logger}
}

// ExtractCurve builds the age-incidence curve for sel. Rows with an
// unparseable or aggregate age group, a missing rate or another year are
// dropped. Rows sharing an age midpoint are averaged, and the result is
// sorted by age.
func (e *Extractor) ExtractCurve(table *uscs.Table, sel Selection) (domain.Curve, error) {
	for _, col := range []string{uscs.ColAge, uscs.ColRate, uscs.ColYear} {
		if !table.HasColumn(col) {
			return domain.Curve{}, core.NewMissingColumnError(col)
		}
	}

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[float64]*bucket)
	dropped := 0

	for _, row := range table.Rows {
		if !sel.matches(row) {
			continue
		}
		year, ok := parseNumber(row[uscs.ColYear])
		if !ok || int(year) != sel.Year || year != math.Trunc(year) {
			continue
		}
		mid, ok := agegroup.Midpoint(row[uscs.ColAge])
		if !ok {
			dropped++
			continue
		}
		rate, ok := parseNumber(row[uscs.ColRate])
		if !ok {
			dropped++
			continue
		}
		b := buckets[mid]
		if b == nil {
			b = &bucket{}
			buckets[mid] = b
		}
		b.sum += rate
		b.count++
	}

	if len(buckets) == 0 {
		return domain.Curve{}, fmt.Errorf("%w: no rows for year %d site %q", core.ErrInsufficientData, sel.Year, sel.Site)
	}

	ages := make([]float64, 0, len(buckets))
	for age := range buckets {
		ages = append(ages, age)
	}
	sort.Float64s(ages)

	rates := make([]float64, len(ages))
	for i, age := range ages {
		b := buckets[age]
		rates[i] = b.sum / float64(b.count)
	}

	e.logger.Debug("[incidence] year %d: %d age groups, %d rows dropped", sel.Year, len(ages), dropped)

	curve := domain.Curve{Year: sel.Year, Site: sel.Site, Ages: ages, Rates: rates}
	return curve, curve.Validate()
}

// ExtractCurves builds one curve per year. Years without usable rows are
// logged and skipped; other failures abort.
func (e *Extractor) ExtractCurves(table *uscs.Table, sel Selection, years []int) ([]domain.Curve, error) {
	curves := make([]domain.Curve, 0, len(years))
	for _, year := range years {
		s := sel
		s.Year = year
		curve, err := e.ExtractCurve(table, s)
		if err != nil {
			if core.IsShapeError(err) {
				e.logger.Warn("could not extract curve for year %d: %v", year, err)
				continue
			}
			return nil, err
		}
		curves = append(curves, curve)
	}
	return curves, nil
}

// TrendFilter selects rows of a BRAINBYSITE table
type TrendFilter struct {
	Age      string
	Behavior string
	Site     string
}

// PediatricMalignantBrain selects malignant brain tumours in ages 0-19
func PediatricMalignantBrain() TrendFilter {
	return TrendFilter{Age: "0-19", Behavior: "Malignant"}
}

// AnnualTrend averages the age-adjusted rate per year for rows matching
// filter. Rows without a reported rate or numeric year are skipped.
func (e *Extractor) AnnualTrend(table *uscs.Table, filter TrendFilter) ([]domain.AnnualRate, error) {
	for _, col := range []string{uscs.ColAge, uscs.ColYear, uscs.ColAgeAdjustedRate} {
		if !table.HasColumn(col) {
			return nil, core.NewMissingColumnError(col)
		}
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, row := range table.Rows {
		if !matchField(row, uscs.ColAge, filter.Age) ||
			!matchField(row, uscs.ColBehavior, filter.Behavior) ||
			!matchField(row, uscs.ColSite, filter.Site) {
			continue
		}
		rate, ok := parseNumber(row[uscs.ColAgeAdjustedRate])
		if !ok {
			continue
		}
		year, ok := parseNumber(row[uscs.ColYear])
		if !ok {
			continue
		}
		y := int(year)
		sums[y] += rate
		counts[y]++
	}

	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no rows match age %q behavior %q", core.ErrInsufficientData, filter.Age, filter.Behavior)
	}

	trend := make([]domain.AnnualRate, 0, len(counts))
	for year, n := range counts {
		trend = append(trend, domain.AnnualRate{Year: year, MeanRate: sums[year] / float64(n), Count: n})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Year < trend[j].Year })
	return trend, nil
}

// parseNumber reads a numeric cell; empty, missing and non-finite cells
// are reported as absent.
func parseNumber(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == uscs.MissingMarker {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
