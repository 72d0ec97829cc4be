package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"pm25-timeseries/config"
	"pm25-timeseries/models"
)

// Excel serial numbers accepted as timestamps in column 0 (1900-01-01 .. 2173-10-14).
const (
	minDateSerial = 1.0
	maxDateSerial = 100000.0
)

// ReadRawTable reads a yearly measurement sheet. An empty sheet name selects the first sheet.
func ReadRawTable(filePath, sheet string, year int) (models.RawTable, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		log.Error(err)
		return models.RawTable{}, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()
	return readRawSheet(f, sheet, year)
}

// readRawSheet reads raw cell values so readings keep full precision. Column 0
// cells with a date format holding a date serial are rendered as YYYY-MM-DD HH:MM:SS.
func readRawSheet(f *excelize.File, sheet string, year int) (models.RawTable, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		log.Error(err)
		return models.RawTable{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	converted := 0
	for i, row := range rows {
		if len(row) == 0 || !isDateCell(f, sheet, i+1) {
			continue
		}
		if text, ok := serialToTimestamp(row[0], date1904); ok {
			row[0] = text
			converted++
		}
	}

	log.WithFields(log.Fields{
		"year":       year,
		"sheet":      sheet,
		"rows":       len(rows),
		"timestamps": converted,
	}).Info("Read measurement sheet")

	return models.RawTable{Year: year, Rows: rows}, nil
}

// isDateCell reports whether the column A cell of the given row carries a date
// or time number format. Plain numbers keep their raw text.
func isDateCell(f *excelize.File, sheet string, row int) bool {
	cellName, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return false
	}
	styleID, err := f.GetCellStyle(sheet, cellName)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt)
	}
	return (style.NumFmt >= 14 && style.NumFmt <= 22) || (style.NumFmt >= 45 && style.NumFmt <= 47)
}

// isDateFormat looks for date or time tokens in a custom number format,
// ignoring quoted literals, escaped characters and [..] sections.
func isDateFormat(format string) bool {
	inQuotes, inBrackets, escaped := false, false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case escaped:
			escaped = false
		case inQuotes:
			inQuotes = r != '"'
		case inBrackets:
			inBrackets = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = true
		case r == '[':
			inBrackets = true
		case strings.ContainsRune("ymdhs", r):
			return true
		}
	}
	return false
}

func serialToTimestamp(cell string, date1904 bool) (string, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || serial < minDateSerial || serial > maxDateSerial {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return "", false
	}
	return t.Round(time.Second).Format(config.GetTimestampLayout()), true
}

// ReadMetadata reads the station metadata workbook. The first row of the first
// sheet is the header.
func ReadMetadata(filePath string) (models.MetadataTable, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		log.Error(err)
		return models.MetadataTable{}, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		log.Error(err)
		return models.MetadataTable{}, fmt.Errorf("failed to read metadata sheet: %w", err)
	}
	if len(rows) == 0 {
		return models.MetadataTable{}, fmt.Errorf("metadata workbook %s is empty", filePath)
	}

	meta := models.MetadataTable{Header: rows[0], Rows: rows[1:]}
	log.WithFields(log.Fields{"rows": len(meta.Rows), "columns": len(meta.Header)}).Info("Read station metadata")
	return meta, nil
}
