package processor

import (
	"sort"
	"time"

	"pm25-timeseries/models"
	"pm25-timeseries/utils"
)

// ExceedanceDaysByStation counts, per station, location and year, the distinct
// days whose daily mean was over the norm.
func ExceedanceDaysByStation(records []models.EnrichedRecord) []models.StationExceedance {
	type stationYear struct {
		station  string
		location string
		year     int
	}
	days := map[stationYear]map[time.Time]struct{}{}
	for _, r := range records {
		if !r.OverNorm.Valid || !r.OverNorm.Bool {
			continue
		}
		key, ok := keyOfDay(r.Measurement)
		if !ok {
			continue
		}
		sy := stationYear{station: key.station, location: key.location, year: key.day.Year()}
		if days[sy] == nil {
			days[sy] = map[time.Time]struct{}{}
		}
		days[sy][key.day] = struct{}{}
	}

	counts := make([]models.StationExceedance, 0, len(days))
	for sy, set := range days {
		counts = append(counts, models.StationExceedance{StationCode: sy.station, Location: sy.location, Year: sy.year, Days: len(set)})
	}
	sort.Slice(counts, func(i, j int) bool {
		a, b := counts[i], counts[j]
		if a.StationCode != b.StationCode {
			return a.StationCode < b.StationCode
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return a.Year < b.Year
	})
	return counts
}

// TopBottomStations returns the n stations with the most and the n with the
// fewest exceedance days in year. Ties keep station code order.
func TopBottomStations(counts []models.StationExceedance, year, n int) (top, bottom []models.StationExceedance) {
	var inYear []models.StationExceedance
	for _, c := range counts {
		if c.Year == year {
			inYear = append(inYear, c)
		}
	}
	if n > len(inYear) {
		n = len(inYear)
	}

	sort.SliceStable(inYear, func(i, j int) bool { return inYear[i].Days > inYear[j].Days })
	top = append(top, inYear[:n]...)

	sort.SliceStable(inYear, func(i, j int) bool {
		if inYear[i].Days != inYear[j].Days {
			return inYear[i].Days < inYear[j].Days
		}
		return inYear[i].StationCode < inYear[j].StationCode
	})
	bottom = append(bottom, inYear[:n]...)
	return top, bottom
}

// ExceedanceDaysByVoivodeship counts, per voivodeship and year, the days on
// which at least one of its stations was over the norm. Stations missing from
// the mapping are ignored.
func ExceedanceDaysByVoivodeship(records []models.EnrichedRecord, voivodeships map[string]string) []models.VoivodeshipExceedance {
	type regionYear struct {
		voivodeship string
		year        int
	}
	days := map[regionYear]map[time.Time]struct{}{}
	for _, r := range records {
		if !r.OverNorm.Valid || !r.OverNorm.Bool || !r.Timestamp.Valid {
			continue
		}
		voivodeship, ok := voivodeships[r.StationCode]
		if !ok || voivodeship == "" {
			continue
		}
		day := utils.TruncateToDay(r.Timestamp.Time)
		ry := regionYear{voivodeship: voivodeship, year: day.Year()}
		if days[ry] == nil {
			days[ry] = map[time.Time]struct{}{}
		}
		days[ry][day] = struct{}{}
	}

	counts := make([]models.VoivodeshipExceedance, 0, len(days))
	for ry, set := range days {
		counts = append(counts, models.VoivodeshipExceedance{Voivodeship: ry.voivodeship, Year: ry.year, Days: len(set)})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Voivodeship != counts[j].Voivodeship {
			return counts[i].Voivodeship < counts[j].Voivodeship
		}
		return counts[i].Year < counts[j].Year
	})
	return counts
}

// MonthlyTrend averages the monthly means of all stations of a location, for
// the given locations and years. Empty filters select everything.
func MonthlyTrend(records []models.EnrichedRecord, locations []string, years []int) []models.TrendPoint {
	wantLocation := toSet(locations)
	wantYear := map[int]bool{}
	for _, y := range years {
		wantYear[y] = true
	}

	// one monthly mean per station first, so hourly row counts do not weight the average
	perStation := map[monthKey]float64{}
	for _, r := range records {
		if !r.MonthlyMean.Valid {
			continue
		}
		key, ok := keyOfMonth(r.Measurement)
		if !ok {
			continue
		}
		if len(wantLocation) > 0 && !wantLocation[key.location] {
			continue
		}
		if len(wantYear) > 0 && !wantYear[key.year] {
			continue
		}
		perStation[key] = r.MonthlyMean.Float64
	}

	type locationMonth struct {
		location string
		year     int
		month    time.Month
	}
	groups := map[locationMonth]*accumulator{}
	for key, mean := range perStation {
		lm := locationMonth{location: key.location, year: key.year, month: key.month}
		if groups[lm] == nil {
			groups[lm] = &accumulator{}
		}
		groups[lm].sum += mean
		groups[lm].count++
	}

	trend := make([]models.TrendPoint, 0, len(groups))
	for lm, acc := range groups {
		trend = append(trend, models.TrendPoint{Location: lm.location, Year: lm.year, Month: lm.month, Mean: acc.mean()})
	}
	sort.Slice(trend, func(i, j int) bool {
		a, b := trend[i], trend[j]
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return trend
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
