package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"pm25-timeseries/config"
	"pm25-timeseries/models"
	"pm25-timeseries/utils"
)

var (
	MeasurementHeader = []string{"location", "station_code", "timestamp", "pm25"}
	EnrichedHeader    = []string{"location", "station_code", "timestamp", "pm25", "day", "year", "month", "daily_mean", "over_norm", "monthly_mean"}
)

// WriteMeasurements writes the long-format table to filePath.
func WriteMeasurements(filePath string, measurements []models.Measurement) error {
	records := make([][]string, len(measurements))
	for i, m := range measurements {
		records[i] = measurementFields(m)
	}
	return writeCSV(filePath, MeasurementHeader, records)
}

// WriteEnriched writes measurements with their merged statistics to filePath.
func WriteEnriched(filePath string, enriched []models.EnrichedRecord) error {
	records := make([][]string, len(enriched))
	for i, e := range enriched {
		var day, year, month string
		if e.Timestamp.Valid {
			day = utils.TruncateToDay(e.Timestamp.Time).Format(config.GetCSVDateLayoutShort())
			year = strconv.Itoa(e.Timestamp.Time.Year())
			month = strconv.Itoa(int(e.Timestamp.Time.Month()))
		}
		records[i] = append(measurementFields(e.Measurement),
			day,
			year,
			month,
			utils.FormatNullFloat(e.DailyMean),
			utils.FormatNullBool(e.OverNorm),
			utils.FormatNullFloat(e.MonthlyMean),
		)
	}
	return writeCSV(filePath, EnrichedHeader, records)
}

func measurementFields(m models.Measurement) []string {
	return []string{
		m.Location.String,
		m.StationCode,
		utils.FormatNullTime(m.Timestamp),
		utils.FormatNullFloat(m.PM25),
	}
}

// writeCSV writes to filePath + ".tmp" and renames it to filePath when done,
// so readers never see a partially written file.
func writeCSV(filePath string, header []string, records [][]string) error {
	log.WithFields(log.Fields{"file_path": filePath, "record_count": len(records)}).Info("Writing CSV file")

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := filePath + config.GetTmpExtension()
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			file.Close()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filePath)
}

// ReadMeasurements loads a CSV written by WriteMeasurements or WriteEnriched.
// Columns are found by header name; malformed cells become missing values.
func ReadMeasurements(filePath string) ([]models.Measurement, error) {
	rows, err := readCSV(filePath)
	if err != nil {
		return nil, err
	}
	measurements := make([]models.Measurement, len(rows))
	for i, row := range rows {
		measurements[i] = row.measurement()
	}
	return measurements, nil
}

// ReadEnriched loads a CSV written by WriteEnriched.
func ReadEnriched(filePath string) ([]models.EnrichedRecord, error) {
	rows, err := readCSV(filePath)
	if err != nil {
		return nil, err
	}
	enriched := make([]models.EnrichedRecord, len(rows))
	for i, row := range rows {
		enriched[i] = models.EnrichedRecord{
			Measurement: row.measurement(),
			DailyMean:   utils.ParseReading(row.field("daily_mean")),
			OverNorm:    utils.ParseNullBool(row.field("over_norm")),
			MonthlyMean: utils.ParseReading(row.field("monthly_mean")),
		}
	}
	return enriched, nil
}

type csvRow struct {
	index  map[string]int
	record []string
}

func (r csvRow) field(name string) string {
	if i, ok := r.index[name]; ok && i < len(r.record) {
		return r.record[i]
	}
	return ""
}

func (r csvRow) measurement() models.Measurement {
	return models.Measurement{
		Location:    utils.NullString(r.field("location")),
		StationCode: r.field("station_code"),
		Timestamp:   utils.ParseTimestamp(r.field("timestamp")),
		PM25:        utils.ParseReading(r.field("pm25")),
	}
}

func readCSV(filePath string) ([]csvRow, error) {
	file, err := os.Open(filePath)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", filePath, err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[name] = i
	}
	for _, name := range MeasurementHeader {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%s has no column %q", filePath, name)
		}
	}

	var rows []csvRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
		}
		rows = append(rows, csvRow{index: index, record: record})
	}

	log.WithFields(log.Fields{"file_path": filePath, "record_count": len(rows)}).Info("Read CSV file")
	return rows, nil
}
