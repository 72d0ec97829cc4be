package processor

import (
	"database/sql"
	"time"

	"pm25-timeseries/models"
)

func at(year int, month time.Month, day, hour int) sql.NullTime {
	return sql.NullTime{Time: time.Date(year, month, day, hour, 0, 0, 0, time.UTC), Valid: true}
}

func reading(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func measurement(location, station string, ts sql.NullTime, pm25 sql.NullFloat64) models.Measurement {
	return models.Measurement{
		Location:    sql.NullString{String: location, Valid: location != ""},
		StationCode: station,
		Timestamp:   ts,
		PM25:        pm25,
	}
}
