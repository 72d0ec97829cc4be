package processor

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"pm25-timeseries/models"
	"pm25-timeseries/utils"
)

// CleanYear turns one yearly sheet into long-format measurements with current
// station codes, locations and corrected midnight timestamps.
//
// A sheet without timestamp rows gives a *MissingDataRowsError and metadata
// without the code/location columns a *MissingMetadataColumnsError. Unknown
// stations only produce a warning.
func CleanYear(raw models.RawTable, year int, meta models.MetadataTable) ([]models.Measurement, error) {
	raw.Year = year
	filtered := FilterNoiseRows(raw, year)

	dataStart, ok := FindDataStart(filtered)
	if !ok {
		err := &MissingDataRowsError{Year: year}
		log.Error(err)
		return nil, err
	}

	locations, err := LocationMapping(meta)
	if err != nil {
		log.Error(err)
		return nil, err
	}

	measurements := Reshape(filtered, dataStart)

	if mapping, ok := HistoricalCodeMapping(meta); ok {
		log.WithFields(log.Fields{"year": year, "codes": len(mapping)}).Info("Created mapping for historical station codes")
		NormalizeStationCodes(measurements, mapping)
	} else {
		log.WithField("year", year).Warn("Metadata has no historical station code column, codes are kept as they are")
		NormalizeStationCodes(measurements, nil)
	}

	if unmatched := JoinLocations(measurements, locations); len(unmatched) > 0 {
		log.WithFields(log.Fields{
			"year":     year,
			"count":    len(unmatched),
			"stations": unmatched,
		}).Warn("No location found for stations")
	}

	shifted := CorrectMidnight(measurements)

	log.WithFields(log.Fields{
		"year":         year,
		"measurements": len(measurements),
		"days":         countDays(measurements),
		"stations":     countStations(measurements),
		"midnight":     shifted,
	}).Info("Cleaned yearly data")

	return measurements, nil
}

// CleanYears cleans every sheet and concatenates the results in year order.
// It stops at the first failing year.
func CleanYears(raws map[int]models.RawTable, meta models.MetadataTable) (map[int][]models.Measurement, []models.Measurement, error) {
	years := make([]int, 0, len(raws))
	for year := range raws {
		years = append(years, year)
	}
	sort.Ints(years)

	perYear := make(map[int][]models.Measurement, len(years))
	var all []models.Measurement
	for _, year := range years {
		measurements, err := CleanYear(raws[year], year, meta)
		if err != nil {
			return nil, nil, err
		}
		perYear[year] = measurements
		all = append(all, measurements...)
	}
	return perYear, all, nil
}

// SortForStorage orders measurements by location, station code and timestamp.
// Missing locations sort first.
func SortForStorage(measurements []models.Measurement) {
	sort.SliceStable(measurements, func(i, j int) bool {
		a, b := measurements[i], measurements[j]
		if a.Location.String != b.Location.String {
			return a.Location.String < b.Location.String
		}
		if a.StationCode != b.StationCode {
			return a.StationCode < b.StationCode
		}
		return a.Timestamp.Time.Before(b.Timestamp.Time)
	})
}

func countDays(measurements []models.Measurement) int {
	days := map[int64]struct{}{}
	for _, m := range measurements {
		if m.Timestamp.Valid {
			days[utils.TruncateToDay(m.Timestamp.Time).Unix()] = struct{}{}
		}
	}
	return len(days)
}

func countStations(measurements []models.Measurement) int {
	stations := map[string]struct{}{}
	for _, m := range measurements {
		stations[m.StationCode] = struct{}{}
	}
	return len(stations)
}
