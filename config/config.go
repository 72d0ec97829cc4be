package config

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/tkanos/gonfig"
	"gopkg.in/yaml.v2"
)

type Configuration struct {
	DEBUG_LOGGING            bool
	MAX_LOGFILE_SIZE         int64
	LOG_FILE                 string
	DATA_DIR                 string
	OUTPUT_FILE              string
	ENRICHED_FILE            string
	METADATA_FILE            string
	METADATA_URL             string
	ARCHIVE_URL              string
	ARCHIVE_CATALOG          string
	YEARS                    []int
	NORM_THRESHOLD           *float64
	DB_DRIVER                string
	DB_DSN                   string
	SKIP_DB_UPDATE           bool
	DOWNLOAD_TIMEOUT_SECONDS int
}

// ArchiveEntry describes where the PM2.5 sheet of one year lives on the archive server.
type ArchiveEntry struct {
	ArchiveID     string `yaml:"archive_id"`
	PM25Filename  string `yaml:"pm25_filename"`
	SheetName     string `yaml:"sheet_name,omitempty"`
	LocalFilename string `yaml:"local_filename,omitempty"`
}

// GetConfig reads ./<env>_pm25_config.json. Environment variables with the same
// names as the fields override the file.
func GetConfig(params ...string) Configuration {
	configuration := Configuration{}
	env := ""
	if len(params) > 0 {
		env = params[0]
	}
	fileName := fmt.Sprintf("./%s_pm25_config.json", env)

	err := gonfig.GetConf(fileName, &configuration)
	if err != nil {
		log.Warn("Could not read config file ", fileName, ": ", err, " - using defaults")
	}
	applyDefaults(&configuration)

	log.Info("Using configurations in config file with prefix: ", env)

	return configuration
}

func applyDefaults(c *Configuration) {
	if c.MAX_LOGFILE_SIZE == 0 {
		c.MAX_LOGFILE_SIZE = 50
	}
	if c.LOG_FILE == "" {
		c.LOG_FILE = GetLogFileName()
	}
	if c.DATA_DIR == "" {
		c.DATA_DIR = "./data"
	}
	if c.OUTPUT_FILE == "" {
		c.OUTPUT_FILE = "./out/pm25_cleaned.csv"
	}
	if c.ENRICHED_FILE == "" {
		c.ENRICHED_FILE = "./out/pm25_enriched.csv"
	}
	if c.METADATA_FILE == "" {
		c.METADATA_FILE = "./data/metadata.xlsx"
	}
	if c.METADATA_URL == "" {
		c.METADATA_URL = GetDefaultMetadataURL()
	}
	if c.ARCHIVE_URL == "" {
		c.ARCHIVE_URL = GetDefaultArchiveURL()
	}
	if c.ARCHIVE_CATALOG == "" {
		c.ARCHIVE_CATALOG = "./archives.yaml"
	}
	if len(c.YEARS) == 0 {
		c.YEARS = []int{2015, 2018, 2021, 2024}
	}
	if c.NORM_THRESHOLD == nil {
		threshold := GetDefaultNormThreshold()
		c.NORM_THRESHOLD = &threshold
	}
	if c.DB_DRIVER == "" {
		c.DB_DRIVER = "sqlite3"
	}
	if c.DB_DSN == "" {
		c.DB_DSN = "file:./out/pm25.db?_foreign_keys=on&_busy_timeout=5000"
	}
	if c.DOWNLOAD_TIMEOUT_SECONDS == 0 {
		c.DOWNLOAD_TIMEOUT_SECONDS = 120
	}
}

// NormThreshold returns the configured daily limit, or the default one when unset.
func (c Configuration) NormThreshold() float64 {
	if c.NORM_THRESHOLD == nil {
		return GetDefaultNormThreshold()
	}
	return *c.NORM_THRESHOLD
}

// GetArchiveCatalog reads the YAML year catalog, keyed by year.
func GetArchiveCatalog(fileName string) (map[int]ArchiveEntry, error) {
	content, err := os.ReadFile(fileName)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	catalog := map[int]ArchiveEntry{}
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		log.Error(err)
		return nil, fmt.Errorf("parse archive catalog %s: %w", fileName, err)
	}
	return catalog, nil
}

//GetTimestampLayout returns the layout of the timestamps found in the yearly sheets
func GetTimestampLayout() string {
	return "2006-01-02 15:04:05"
}

//GetCSVDateLayoutLong returns the ISO 8601 layout used for timestamps in the CSV files
func GetCSVDateLayoutLong() string {
	return "2006-01-02T15:04:05"
}

//GetCSVDateLayoutShort returns the layout used for calendar days in the CSV files
func GetCSVDateLayoutShort() string {
	return "2006-01-02"
}

//GetFileDateLayout returns the date layout used in archived log file names
func GetFileDateLayout() string {
	return "20060102150405"
}

//GetTmpExtension returns the temporary extension of files being written
func GetTmpExtension() string {
	return ".tmp"
}

//GetStationCodeColumn returns the metadata column holding the current station code
func GetStationCodeColumn() string {
	return "Kod stacji"
}

//GetOldStationCodeColumn returns the metadata column holding the historical station codes
func GetOldStationCodeColumn() string {
	return "Stary Kod stacji \n(o ile inny od aktualnego)"
}

//GetLocationColumn returns the metadata column holding the location name
func GetLocationColumn() string {
	return "Miejscowość"
}

//GetVoivodeshipColumn returns the metadata column holding the voivodeship name
func GetVoivodeshipColumn() string {
	return "Województwo"
}

//GetNoisePatterns returns the first-column fragments marking header rows in the yearly sheets
func GetNoisePatterns() []string {
	return []string{
		`Kod stanowiska`,
		`Jednostka`,
		`Nr`,
		`Wskaźnik`,
		`Czas uśredniania`,
	}
}

//GetDefaultNormThreshold returns the daily PM2.5 limit in μg/m3
func GetDefaultNormThreshold() float64 {
	return 15
}

//GetDefaultArchiveURL returns the base URL of the measurement archive downloads
func GetDefaultArchiveURL() string {
	return "https://powietrze.gios.gov.pl/pjp/archives/downloadFile/"
}

//GetDefaultMetadataURL returns the URL of the station metadata workbook
func GetDefaultMetadataURL() string {
	return "https://powietrze.gios.gov.pl/pjp/archives/downloadFile/622"
}

//GetLogFileName return the name of the log file
func GetLogFileName() string {
	return "./out/pm25-timeseries.log"
}

//GetDefaultEnvironment returns the default configuration prefix
func GetDefaultEnvironment() string {
	return "PROD"
}

//GetStatusRunning returns the string stored for runs in progress
func GetStatusRunning() string {
	return "RUN"
}

//GetStatusFinished returns the string stored for finished runs
func GetStatusFinished() string {
	return "FIN"
}

//GetStatusError returns the string stored for failed runs
func GetStatusError() string {
	return "ERR"
}

//GetBatchSize returns how many rows are inserted per transaction
func GetBatchSize() int {
	return 5000
}
