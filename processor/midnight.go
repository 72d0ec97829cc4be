package processor

import "pm25-timeseries/models"

// CorrectMidnight moves readings stamped 00:00 back one calendar day. The
// archive stamps the last hour of a day with 00:00 of the following day.
// Returns the number of shifted measurements.
func CorrectMidnight(measurements []models.Measurement) int {
	shifted := 0
	for i := range measurements {
		ts := measurements[i].Timestamp
		if !ts.Valid || ts.Time.Hour() != 0 {
			continue
		}
		measurements[i].Timestamp.Time = ts.Time.AddDate(0, 0, -1)
		shifted++
	}
	return shifted
}
