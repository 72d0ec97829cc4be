package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

//RawTable is an untyped sheet as read from a yearly archive. Rows may be ragged.
type RawTable struct {
	Year int
	Rows [][]string
}

//FirstCell returns the text of column 0 of the given row, or "" for empty rows
func (t RawTable) FirstCell(row int) string {
	if row < 0 || row >= len(t.Rows) || len(t.Rows[row]) == 0 {
		return ""
	}
	return t.Rows[row][0]
}

//MetadataTable is the station metadata sheet: a header row and string rows
type MetadataTable struct {
	Header []string
	Rows   [][]string
}

//StationMetadata defines one monitoring station of the metadata sheet
type StationMetadata struct {
	Code        string
	OldCodes    []string
	Location    string
	Voivodeship string
}

//Measurement defines one hourly PM2.5 reading of one station
type Measurement struct {
	Location    sql.NullString
	StationCode string
	Timestamp   sql.NullTime
	PM25        sql.NullFloat64
}

//DailyStatistic defines the mean concentration of one station on one calendar day
type DailyStatistic struct {
	Location    string
	StationCode string
	Day         time.Time
	Mean        float64
	OverNorm    bool
}

//MonthlyStatistic defines the mean concentration of one station in one month
type MonthlyStatistic struct {
	Location    string
	StationCode string
	Year        int
	Month       time.Month
	Mean        float64
}

//EnrichedRecord is a measurement left-joined with its daily and monthly statistic
type EnrichedRecord struct {
	Measurement
	DailyMean   sql.NullFloat64
	OverNorm    sql.NullBool
	MonthlyMean sql.NullFloat64
}

//IngestRun defines one execution of the ingest command stored in the DB
type IngestRun struct {
	RunID      uuid.UUID
	Years      []int
	Threshold  float64
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Details    string
}

//StationExceedance is the number of days over the norm of one station in one year
type StationExceedance struct {
	StationCode string
	Location    string
	Year        int
	Days        int
}

//VoivodeshipExceedance is the number of days on which at least one station of the voivodeship was over the norm
type VoivodeshipExceedance struct {
	Voivodeship string
	Year        int
	Days        int
}

//TrendPoint is the average monthly mean of one location in one month
type TrendPoint struct {
	Location string
	Year     int
	Month    time.Month
	Mean     float64
}
