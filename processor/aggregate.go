package processor

import (
	"database/sql"
	"sort"
	"time"

	"pm25-timeseries/config"
	"pm25-timeseries/models"
	"pm25-timeseries/utils"
)

type dayKey struct {
	location string
	station  string
	day      time.Time
}

type monthKey struct {
	location string
	station  string
	year     int
	month    time.Month
}

// keyOfDay and keyOfMonth are shared by the aggregation and the merge so both
// sides derive identical keys. Measurements without a location or timestamp
// have no key.
func keyOfDay(m models.Measurement) (dayKey, bool) {
	if !m.Location.Valid || !m.Timestamp.Valid {
		return dayKey{}, false
	}
	return dayKey{location: m.Location.String, station: m.StationCode, day: utils.TruncateToDay(m.Timestamp.Time)}, true
}

func keyOfMonth(m models.Measurement) (monthKey, bool) {
	if !m.Location.Valid || !m.Timestamp.Valid {
		return monthKey{}, false
	}
	return monthKey{location: m.Location.String, station: m.StationCode, year: m.Timestamp.Time.Year(), month: m.Timestamp.Time.Month()}, true
}

type accumulator struct {
	sum   float64
	count int
}

func (a accumulator) mean() float64 {
	return utils.Round2(a.sum / float64(a.count))
}

// DailyStats computes the mean of the valid readings per location, station and
// calendar day, rounded to two decimals. OverNorm is set when the mean is at or
// above threshold. Groups without any valid reading are left out. Results are
// sorted by location, station and day.
func DailyStats(measurements []models.Measurement, threshold float64) []models.DailyStatistic {
	groups := map[dayKey]*accumulator{}
	for _, m := range measurements {
		key, ok := keyOfDay(m)
		if !ok || !m.PM25.Valid {
			continue
		}
		acc, found := groups[key]
		if !found {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.sum += m.PM25.Float64
		acc.count++
	}

	daily := make([]models.DailyStatistic, 0, len(groups))
	for key, acc := range groups {
		mean := acc.mean()
		daily = append(daily, models.DailyStatistic{
			Location:    key.location,
			StationCode: key.station,
			Day:         key.day,
			Mean:        mean,
			OverNorm:    mean >= threshold,
		})
	}
	sort.Slice(daily, func(i, j int) bool {
		a, b := daily[i], daily[j]
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.StationCode != b.StationCode {
			return a.StationCode < b.StationCode
		}
		return a.Day.Before(b.Day)
	})
	return daily
}

// DailyStatsDefault is DailyStats with the regulatory limit of 15 μg/m3.
func DailyStatsDefault(measurements []models.Measurement) []models.DailyStatistic {
	return DailyStats(measurements, config.GetDefaultNormThreshold())
}

// MonthlyStats computes the mean of the valid readings per location, station,
// year and month, rounded to two decimals, sorted by those keys.
func MonthlyStats(measurements []models.Measurement) []models.MonthlyStatistic {
	groups := map[monthKey]*accumulator{}
	for _, m := range measurements {
		key, ok := keyOfMonth(m)
		if !ok || !m.PM25.Valid {
			continue
		}
		acc, found := groups[key]
		if !found {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.sum += m.PM25.Float64
		acc.count++
	}

	monthly := make([]models.MonthlyStatistic, 0, len(groups))
	for key, acc := range groups {
		monthly = append(monthly, models.MonthlyStatistic{
			Location:    key.location,
			StationCode: key.station,
			Year:        key.year,
			Month:       key.month,
			Mean:        acc.mean(),
		})
	}
	sort.Slice(monthly, func(i, j int) bool {
		a, b := monthly[i], monthly[j]
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.StationCode != b.StationCode {
			return a.StationCode < b.StationCode
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return monthly
}

// Merge left-joins the daily and monthly statistics onto every measurement.
// The output has exactly one record per input measurement, in input order;
// measurements without a matching statistic get missing values.
func Merge(measurements []models.Measurement, daily []models.DailyStatistic, monthly []models.MonthlyStatistic) []models.EnrichedRecord {
	dailyByKey := make(map[dayKey]models.DailyStatistic, len(daily))
	for _, d := range daily {
		dailyByKey[dayKey{location: d.Location, station: d.StationCode, day: utils.TruncateToDay(d.Day)}] = d
	}
	monthlyByKey := make(map[monthKey]models.MonthlyStatistic, len(monthly))
	for _, m := range monthly {
		monthlyByKey[monthKey{location: m.Location, station: m.StationCode, year: m.Year, month: m.Month}] = m
	}

	enriched := make([]models.EnrichedRecord, len(measurements))
	for i, m := range measurements {
		enriched[i].Measurement = m
		if key, ok := keyOfDay(m); ok {
			if d, found := dailyByKey[key]; found {
				enriched[i].DailyMean = sql.NullFloat64{Float64: d.Mean, Valid: true}
				enriched[i].OverNorm = sql.NullBool{Bool: d.OverNorm, Valid: true}
			}
		}
		if key, ok := keyOfMonth(m); ok {
			if mo, found := monthlyByKey[key]; found {
				enriched[i].MonthlyMean = sql.NullFloat64{Float64: mo.Mean, Valid: true}
			}
		}
	}
	return enriched
}

// Enrich computes the statistics of the whole dataset and merges them back.
func Enrich(measurements []models.Measurement, threshold float64) []models.EnrichedRecord {
	return Merge(measurements, DailyStats(measurements, threshold), MonthlyStats(measurements))
}
