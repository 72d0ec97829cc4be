package processor

import (
	"regexp"

	log "github.com/sirupsen/logrus"

	"pm25-timeseries/config"
	"pm25-timeseries/models"
)

var dataRowPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)

// NoisePolicy decides which leading sheet rows are header/label noise.
type NoisePolicy struct {
	Name     string
	Patterns []*regexp.Regexp
}

// IsNoise reports whether a row with the given first cell should be dropped.
func (p NoisePolicy) IsNoise(firstCell string) bool {
	for _, pattern := range p.Patterns {
		if pattern.MatchString(firstCell) {
			return true
		}
	}
	return false
}

// With returns a copy of the policy extended with extra patterns.
func (p NoisePolicy) With(name string, extra ...*regexp.Regexp) NoisePolicy {
	patterns := make([]*regexp.Regexp, 0, len(p.Patterns)+len(extra))
	patterns = append(patterns, p.Patterns...)
	patterns = append(patterns, extra...)
	return NoisePolicy{Name: name, Patterns: patterns}
}

// DefaultNoisePolicy matches the known header labels, case-insensitively.
func DefaultNoisePolicy() NoisePolicy {
	var patterns []*regexp.Regexp
	for _, p := range config.GetNoisePatterns() {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+p))
	}
	return NoisePolicy{Name: "default", Patterns: patterns}
}

// yearPolicies holds the sheets whose layout differs from the default one.
// The 2014 sheet carries an extra indicator row starting with "PM2.5".
var yearPolicies = map[int]NoisePolicy{
	2014: DefaultNoisePolicy().With("2014", regexp.MustCompile(`^\s*PM2.5`)),
}

// NoisePolicyForYear returns the policy registered for year, or the default one.
func NoisePolicyForYear(year int) NoisePolicy {
	if p, ok := yearPolicies[year]; ok {
		return p
	}
	return DefaultNoisePolicy()
}

// FindDataStart returns the index of the first row whose first cell looks like
// YYYY-MM-DD HH:MM:SS. ok is false when no row qualifies.
func FindDataStart(table models.RawTable) (index int, ok bool) {
	for i := range table.Rows {
		if dataRowPattern.MatchString(table.FirstCell(i)) {
			return i, true
		}
	}
	return -1, false
}

// FilterNoiseRows drops the rows the year's noise policy matches. Order is kept.
func FilterNoiseRows(table models.RawTable, year int) models.RawTable {
	return FilterNoiseRowsWithPolicy(table, NoisePolicyForYear(year))
}

// FilterNoiseRowsWithPolicy is FilterNoiseRows with an explicit policy.
func FilterNoiseRowsWithPolicy(table models.RawTable, policy NoisePolicy) models.RawTable {
	kept := make([][]string, 0, len(table.Rows))
	for i, row := range table.Rows {
		if policy.IsNoise(table.FirstCell(i)) {
			continue
		}
		kept = append(kept, row)
	}

	log.WithFields(log.Fields{
		"year":    table.Year,
		"policy":  policy.Name,
		"kept":    len(kept),
		"removed": len(table.Rows) - len(kept),
	}).Info("Filtered header rows")

	return models.RawTable{Year: table.Year, Rows: kept}
}
