package processor

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"pm25-timeseries/models"
	"pm25-timeseries/utils"
)

// StationHeader returns the column names of a filtered sheet: "timestamp"
// followed by the trimmed station codes found in row 0.
func StationHeader(table models.RawTable) []string {
	header := []string{"timestamp"}
	if len(table.Rows) == 0 || len(table.Rows[0]) < 2 {
		return header
	}
	for _, code := range table.Rows[0][1:] {
		header = append(header, strings.TrimSpace(code))
	}
	return header
}

// Reshape melts the wide sheet into one measurement per (station, timestamp),
// reading rows from dataStart on. Output is station-major: every timestamp of
// the first station column, then of the second, and so on. Cells beyond the
// header are ignored and missing cells become missing readings.
func Reshape(table models.RawTable, dataStart int) []models.Measurement {
	header := StationHeader(table)
	if dataStart < 0 || dataStart >= len(table.Rows) || len(header) < 2 {
		return nil
	}
	dataRows := table.Rows[dataStart:]

	measurements := make([]models.Measurement, 0, (len(header)-1)*len(dataRows))
	skipped := 0
	for col := 1; col < len(header); col++ {
		code := header[col]
		if code == "" {
			skipped++
			continue
		}
		for _, row := range dataRows {
			var timestamp, cell string
			if len(row) > 0 {
				timestamp = row[0]
			}
			if col < len(row) {
				cell = row[col]
			}
			measurements = append(measurements, models.Measurement{
				StationCode: code,
				Timestamp:   utils.ParseTimestamp(timestamp),
				PM25:        utils.ParseReading(cell),
			})
		}
	}

	if skipped > 0 {
		log.WithFields(log.Fields{"year": table.Year, "columns": skipped}).Debug("Skipped columns without station code")
	}
	return measurements
}
