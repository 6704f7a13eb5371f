package uscs

// MissingMarker is how USCS ASCII exports mark suppressed or missing values
const MissingMarker = "~"

// Row is one record keyed by column header. Missing values are empty strings.
type Row map[string]string

// Table is a loaded USCS extract
type Table struct {
	Source  string
	Headers []string
	Rows    []Row
}

// HasColumn reports whether the header row contains name
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Column names used by the BYAGE and BRAINBYSITE extracts
const (
	ColAge              = "AGE"
	ColYear             = "YEAR"
	ColEventType        = "EVENT_TYPE"
	ColRace             = "RACE"
	ColSex              = "SEX"
	ColSite             = "SITE"
	ColRate             = "RATE"
	ColCount            = "COUNT"
	ColPopulation       = "POPULATION"
	ColBehavior         = "BEHAVIOR"
	ColAgeAdjustedRate  = "AGE_ADJUSTED_RATE"
	ColAgeAdjustedLower = "AGE_ADJUSTED_CI_LOWER"
	ColAgeAdjustedUpper = "AGE_ADJUSTED_CI_UPPER"
)
