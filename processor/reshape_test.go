package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm25-timeseries/models"
)

func TestStationHeader(t *testing.T) {
	table := models.RawTable{Rows: [][]string{
		{"Kod stacji", " A1 ", "B2\t"},
		{"2020-01-01 01:00:00", "1", "2"},
	}}
	assert.Equal(t, []string{"timestamp", "A1", "B2"}, StationHeader(table))
	assert.Equal(t, []string{"timestamp"}, StationHeader(models.RawTable{}))
}

func TestReshape_StationMajorOrder(t *testing.T) {
	table := models.RawTable{Rows: [][]string{
		{"Kod stacji", "A", "B"},
		{"2020-01-01 01:00:00", "10", "20,5"},
		{"2020-01-01 02:00:00", "11", "21"},
	}}

	measurements := Reshape(table, 1)

	require.Len(t, measurements, 4)
	codes := []string{measurements[0].StationCode, measurements[1].StationCode, measurements[2].StationCode, measurements[3].StationCode}
	assert.Equal(t, []string{"A", "A", "B", "B"}, codes)

	assert.Equal(t, time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC), measurements[0].Timestamp.Time)
	assert.Equal(t, time.Date(2020, 1, 1, 2, 0, 0, 0, time.UTC), measurements[1].Timestamp.Time)
	assert.Equal(t, 10.0, measurements[0].PM25.Float64)
	assert.Equal(t, 20.5, measurements[2].PM25.Float64)
	assert.False(t, measurements[0].Location.Valid)
}

func TestReshape_RaggedRows(t *testing.T) {
	table := models.RawTable{Rows: [][]string{
		{"Kod stacji", "A", "B"},
		{"2020-01-01 01:00:00", "10"},
		{"2020-01-01 02:00:00", "bad", "7", "extra"},
	}}

	measurements := Reshape(table, 1)

	require.Len(t, measurements, 4)
	assert.True(t, measurements[0].PM25.Valid)
	assert.False(t, measurements[1].PM25.Valid, "malformed number becomes missing")
	assert.False(t, measurements[2].PM25.Valid, "missing cell becomes missing")
	assert.Equal(t, 7.0, measurements[3].PM25.Float64)
}

func TestReshape_SkipsColumnsWithoutCode(t *testing.T) {
	table := models.RawTable{Rows: [][]string{
		{"Kod stacji", "A", " ", "C"},
		{"2020-01-01 01:00:00", "1", "2", "3"},
	}}

	measurements := Reshape(table, 1)

	require.Len(t, measurements, 2)
	assert.Equal(t, "A", measurements[0].StationCode)
	assert.Equal(t, "C", measurements[1].StationCode)
	assert.Equal(t, 3.0, measurements[1].PM25.Float64)
}

func TestReshape_InvalidStart(t *testing.T) {
	table := models.RawTable{Rows: [][]string{{"Kod stacji", "A"}}}
	assert.Empty(t, Reshape(table, 5))
	assert.Empty(t, Reshape(table, -1))
}
