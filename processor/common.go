package processor

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"pm25-timeseries/models"
)

// CommonStations returns the station codes present in every yearly dataset.
// No datasets give an empty set.
func CommonStations(perYear map[int][]models.Measurement) map[string]struct{} {
	years := make([]int, 0, len(perYear))
	for year := range perYear {
		years = append(years, year)
	}
	sort.Ints(years)

	var common map[string]struct{}
	for _, year := range years {
		stations := map[string]struct{}{}
		for _, m := range perYear[year] {
			if common == nil {
				stations[m.StationCode] = struct{}{}
				continue
			}
			if _, ok := common[m.StationCode]; ok {
				stations[m.StationCode] = struct{}{}
			}
		}
		common = stations
	}
	if common == nil {
		return map[string]struct{}{}
	}

	log.WithFields(log.Fields{"years": years, "stations": len(common)}).Info("Found common stations for all years")
	return common
}

// SortedCodes returns the codes of a station set in ascending order.
func SortedCodes(set map[string]struct{}) []string {
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SplitByYear groups a long dataset by the calendar year of each timestamp.
// Measurements without a timestamp are left out.
func SplitByYear(measurements []models.Measurement) map[int][]models.Measurement {
	perYear := map[int][]models.Measurement{}
	for _, m := range measurements {
		if !m.Timestamp.Valid {
			continue
		}
		year := m.Timestamp.Time.Year()
		perYear[year] = append(perYear[year], m)
	}
	return perYear
}
