package processor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm25-timeseries/models"
)

func rawSheet() models.RawTable {
	return models.RawTable{Rows: [][]string{
		{"Nr", "1", "2"},
		{"Kod stacji", "MzWarszNiepo", "SlKatoKossut"},
		{"Wskaźnik", "PM2.5", "PM2.5"},
		{"Czas uśredniania", "1g", "1g"},
		{"Jednostka", "ug/m3", "ug/m3"},
		{"Kod stanowiska", "MzWarszNiepo-PM2.5-1g", "SlKatoKossut-PM2.5-1g"},
		{"2020-01-01 01:00:00", "10", "30,5"},
		{"2020-01-01 02:00:00", "20", ""},
		{"2020-01-02 00:00:00", "12", "40"},
	}}
}

func TestCleanYear(t *testing.T) {
	measurements, err := CleanYear(rawSheet(), 2020, testMetadata())

	require.NoError(t, err)
	require.Len(t, measurements, 6)

	for _, m := range measurements[:3] {
		assert.Equal(t, "MzWarAlNiepo", m.StationCode)
		assert.Equal(t, "Warszawa", m.Location.String)
	}
	for _, m := range measurements[3:] {
		assert.Equal(t, "SlKatoKossut", m.StationCode)
		assert.Equal(t, "Katowice", m.Location.String)
	}

	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), measurements[2].Timestamp.Time)
	assert.Equal(t, 30.5, measurements[3].PM25.Float64)
	assert.False(t, measurements[4].PM25.Valid)
	assert.Equal(t, 2020, measurements[0].Timestamp.Time.Year())
}

func TestCleanYear_MissingDataRows(t *testing.T) {
	raw := models.RawTable{Rows: [][]string{
		{"Kod stacji", "A"},
		{"Jednostka", "ug/m3"},
	}}

	_, err := CleanYear(raw, 2018, testMetadata())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingDataRows))
	var rowsErr *MissingDataRowsError
	require.True(t, errors.As(err, &rowsErr))
	assert.Equal(t, 2018, rowsErr.Year)
}

func TestCleanYear_MissingMetadataColumns(t *testing.T) {
	meta := models.MetadataTable{Header: []string{"Nr", "Kod stacji"}}

	_, err := CleanYear(rawSheet(), 2020, meta)

	assert.ErrorIs(t, err, ErrMissingMetadataColumns)
}

func TestCleanYear_WithoutHistoricalColumn(t *testing.T) {
	meta := models.MetadataTable{
		Header: []string{"Kod stacji", "Miejscowość"},
		Rows:   [][]string{{"MzWarszNiepo", "Warszawa"}},
	}

	measurements, err := CleanYear(rawSheet(), 2020, meta)

	require.NoError(t, err)
	assert.Equal(t, "MzWarszNiepo", measurements[0].StationCode)
	assert.Equal(t, "Warszawa", measurements[0].Location.String)
	assert.False(t, measurements[3].Location.Valid)
}

func TestCleanYears(t *testing.T) {
	raw2021 := rawSheet()
	raw2021.Rows = raw2021.Rows[:7]
	raw2021.Rows[6] = []string{"2021-03-01 05:00:00", "1", "2"}

	perYear, all, err := CleanYears(map[int]models.RawTable{2021: raw2021, 2020: rawSheet()}, testMetadata())

	require.NoError(t, err)
	assert.Len(t, perYear[2020], 6)
	assert.Len(t, perYear[2021], 2)
	require.Len(t, all, 8)
	assert.Equal(t, 2020, all[0].Timestamp.Time.Year())
	assert.Equal(t, 2021, all[7].Timestamp.Time.Year())
}

func TestCleanYears_StopsOnError(t *testing.T) {
	bad := models.RawTable{Rows: [][]string{{"Kod stacji", "A"}}}

	_, _, err := CleanYears(map[int]models.RawTable{2020: rawSheet(), 2021: bad}, testMetadata())

	var rowsErr *MissingDataRowsError
	require.True(t, errors.As(err, &rowsErr))
	assert.Equal(t, 2021, rowsErr.Year)
}

func TestSortForStorage(t *testing.T) {
	measurements := []models.Measurement{
		measurement("Warszawa", "B", at(2020, 1, 1, 2), reading(1)),
		measurement("Warszawa", "B", at(2020, 1, 1, 1), reading(1)),
		measurement("Kraków", "C", at(2020, 1, 1, 1), reading(1)),
		measurement("", "X", at(2020, 1, 1, 1), reading(1)),
	}

	SortForStorage(measurements)

	assert.Equal(t, "X", measurements[0].StationCode)
	assert.Equal(t, "C", measurements[1].StationCode)
	assert.Equal(t, 1, measurements[2].Timestamp.Time.Hour())
	assert.Equal(t, 2, measurements[3].Timestamp.Time.Hour())
}
