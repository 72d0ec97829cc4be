package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pm25-timeseries/config"
	"pm25-timeseries/database"
	"pm25-timeseries/exporter"
	"pm25-timeseries/repository"
)

func saveSheet(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

// testConfig prepares metadata, two yearly sheets and a catalog in a temp dir.
func testConfig(t *testing.T) config.Configuration {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	saveSheet(t, filepath.Join(dataDir, "metadata.xlsx"), [][]interface{}{
		{"Nr", "Kod stacji", "Stary Kod stacji\n(o ile inny od aktualnego)", "Miejscowość", "Województwo"},
		{1, "MzWarAlNiepo", "MzWarszNiepo", "Warszawa", "MAZOWIECKIE"},
		{2, "SlKatoKossut", "", "Katowice", "ŚLĄSKIE"},
	})
	saveSheet(t, filepath.Join(dataDir, "2020.xlsx"), [][]interface{}{
		{"Nr", 1, 2},
		{"Kod stacji", "MzWarszNiepo", "SlKatoKossut"},
		{"Wskaźnik", "PM2.5", "PM2.5"},
		{"2020-01-01 01:00:00", 10, 30},
		{"2020-01-01 02:00:00", 20, 40},
		{"2020-01-02 00:00:00", 30, 2},
	})
	saveSheet(t, filepath.Join(dataDir, "2021.xlsx"), [][]interface{}{
		{"Kod stacji", "MzWarAlNiepo", "PmGdaLeczkow"},
		{"Jednostka", "ug/m3", "ug/m3"},
		{"2021-06-01 01:00:00", "5,5", 7},
	})

	catalog := filepath.Join(dir, "archives.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
2020:
  archive_id: "1"
  pm25_filename: 2020_PM25_1g.xlsx
  local_filename: 2020.xlsx
2021:
  archive_id: "2"
  pm25_filename: 2021_PM25_1g.xlsx
  local_filename: 2021.xlsx
`), 0644))

	return config.Configuration{
		DATA_DIR:        dataDir,
		OUTPUT_FILE:     filepath.Join(dir, "out", "cleaned.csv"),
		ENRICHED_FILE:   filepath.Join(dir, "out", "enriched.csv"),
		METADATA_FILE:   filepath.Join(dataDir, "metadata.xlsx"),
		ARCHIVE_CATALOG: catalog,
		YEARS:           []int{2020, 2021},
		DB_DRIVER:       database.DriverSQLite,
		DB_DSN:          "file:" + filepath.Join(dir, "out", "pm25.db"),
	}
}

func TestRunIngest(t *testing.T) {
	cfg := testConfig(t)

	runID, err := runIngest(context.Background(), cfg, ingestOptions{})
	require.NoError(t, err)

	measurements, err := exporter.ReadMeasurements(cfg.OUTPUT_FILE)
	require.NoError(t, err)
	require.Len(t, measurements, 8)
	// unmatched stations sort first
	assert.Equal(t, "PmGdaLeczkow", measurements[0].StationCode)
	assert.False(t, measurements[0].Location.Valid)
	assert.Equal(t, "Katowice", measurements[1].Location.String)

	enriched, err := exporter.ReadEnriched(cfg.ENRICHED_FILE)
	require.NoError(t, err)
	require.Len(t, enriched, len(measurements))
	for _, e := range enriched {
		if e.StationCode == "MzWarAlNiepo" && e.Timestamp.Time.Year() == 2020 {
			assert.Equal(t, "Warszawa", e.Location.String)
			assert.Equal(t, 20.0, e.DailyMean.Float64)
			assert.True(t, e.OverNorm.Bool)
		}
	}

	db, err := database.InitDB(cfg.DB_DRIVER, cfg.DB_DSN)
	require.NoError(t, err)
	repo := repository.NewRepository(db, cfg.DB_DRIVER)
	defer repo.Close()

	run, err := repo.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, config.GetStatusFinished(), run.Status)
	assert.Equal(t, "measurements=8;common_stations=1", run.Details)
	count, err := repo.CountMeasurements(runID)
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestRunIngest_SkipDB(t *testing.T) {
	cfg := testConfig(t)
	cfg.SKIP_DB_UPDATE = true

	_, err := runIngest(context.Background(), cfg, ingestOptions{threshold: 50, thresholdSet: true})
	require.NoError(t, err)

	assert.NoFileExists(t, cfg.DB_DSN[len("file:"):])
	enriched, err := exporter.ReadEnriched(cfg.ENRICHED_FILE)
	require.NoError(t, err)
	for _, e := range enriched {
		assert.False(t, e.OverNorm.Bool)
	}
}

func TestRunIngest_MissingYear(t *testing.T) {
	cfg := testConfig(t)
	cfg.YEARS = []int{2020, 2022}

	_, err := runIngest(context.Background(), cfg, ingestOptions{})

	assert.ErrorContains(t, err, "year 2022")
}

func TestStatsCommonAndReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.SKIP_DB_UPDATE = true
	_, err := runIngest(context.Background(), cfg, ingestOptions{})
	require.NoError(t, err)

	require.NoError(t, runStats(cfg, 24))
	enriched, err := exporter.ReadEnriched(cfg.ENRICHED_FILE)
	require.NoError(t, err)
	over := 0
	for _, e := range enriched {
		if e.OverNorm.Bool {
			over++
		}
	}
	// only Katowice 2020-01-01 (mean 24) reaches the new threshold
	assert.Equal(t, 3, over)

	codes, err := commonStations(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"MzWarAlNiepo"}, codes)

	var out bytes.Buffer
	require.NoError(t, runReport(&out, cfg, reportOptions{year: 2020, top: 3, locations: []string{"Warszawa"}}))
	report := out.String()
	assert.Contains(t, report, "SlKatoKossut")
	assert.Contains(t, report, "Śląskie")
	assert.Contains(t, report, "Warszawa")
	assert.Contains(t, report, fmt.Sprintf("%.2f", 20.0))
}

func TestGetEnvironment(t *testing.T) {
	assert.Equal(t, "PROD", getEnvironment(nil))
	assert.Equal(t, "TEST", getEnvironment([]string{"TEST"}))
}

func TestThresholdOrDefault(t *testing.T) {
	configured := 20.0
	cfg := config.Configuration{NORM_THRESHOLD: &configured}
	assert.Equal(t, 20.0, thresholdOrDefault(false, 0, cfg))
	assert.Equal(t, 25.0, thresholdOrDefault(true, 25, cfg))
	assert.Equal(t, 0.0, thresholdOrDefault(true, 0, cfg))
	assert.Equal(t, 15.0, thresholdOrDefault(false, 0, config.Configuration{}))
}

func TestIngestCommand_ZeroThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.SKIP_DB_UPDATE = true

	cmd := newIngestCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--threshold", "0"}))
	require.True(t, cmd.Flags().Changed("threshold"))
	threshold, err := cmd.Flags().GetFloat64("threshold")
	require.NoError(t, err)

	_, err = runIngest(context.Background(), cfg, ingestOptions{threshold: threshold, thresholdSet: true})
	require.NoError(t, err)

	enriched, err := exporter.ReadEnriched(cfg.ENRICHED_FILE)
	require.NoError(t, err)
	for _, e := range enriched {
		if e.DailyMean.Valid {
			assert.True(t, e.OverNorm.Bool, "every day reaches a zero threshold")
		}
	}
}

func TestRootCommand(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["ingest"])
	assert.True(t, names["stats"])
	assert.True(t, names["common"])
	assert.True(t, names["report"])
}
