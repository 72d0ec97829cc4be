package sqls

import (
	"strconv"
	"strings"
)

// placeholders returns n bind variables in the style of the driver:
// ?, ?, ... for sqlite3 and :1, :2, ... for godror.
func placeholders(driver string, n int) string {
	binds := make([]string, n)
	for i := range binds {
		if driver == "godror" {
			binds[i] = ":" + strconv.Itoa(i+1)
		} else {
			binds[i] = "?"
		}
	}
	return strings.Join(binds, ", ")
}

//GetSQLCreateTables returns the DDL statements creating the tables, one statement per element
func GetSQLCreateTables(driver string) []string {
	if driver == "godror" {
		return []string{
			`CREATE TABLE pm25_runs (
    run_id       VARCHAR2(36) PRIMARY KEY,
    years        VARCHAR2(200),
    threshold    NUMBER,
    started_at   VARCHAR2(19) NOT NULL,
    finished_at  VARCHAR2(19),
    status       VARCHAR2(3)  NOT NULL,
    details      VARCHAR2(4000)
)`,
			`CREATE TABLE pm25_stations (
    station_code VARCHAR2(50) PRIMARY KEY,
    location     VARCHAR2(200),
    voivodeship  VARCHAR2(100),
    old_codes    VARCHAR2(1000)
)`,
			`CREATE TABLE pm25_measurements (
    run_id        VARCHAR2(36) NOT NULL,
    location      VARCHAR2(200),
    station_code  VARCHAR2(50) NOT NULL,
    ts            VARCHAR2(19),
    pm25          NUMBER,
    daily_mean    NUMBER,
    over_norm     NUMBER(1),
    monthly_mean  NUMBER
)`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS pm25_runs (
    run_id       TEXT PRIMARY KEY,
    years        TEXT,
    threshold    REAL,
    started_at   TEXT NOT NULL,
    finished_at  TEXT,
    status       TEXT NOT NULL,
    details      TEXT
)`,
		`CREATE TABLE IF NOT EXISTS pm25_stations (
    station_code TEXT PRIMARY KEY,
    location     TEXT,
    voivodeship  TEXT,
    old_codes    TEXT
)`,
		`CREATE TABLE IF NOT EXISTS pm25_measurements (
    run_id        TEXT NOT NULL,
    location      TEXT,
    station_code  TEXT NOT NULL,
    ts            TEXT,
    pm25          REAL,
    daily_mean    REAL,
    over_norm     INTEGER,
    monthly_mean  REAL,
    FOREIGN KEY (run_id) REFERENCES pm25_runs(run_id) ON DELETE CASCADE
)`,
		`CREATE INDEX IF NOT EXISTS idx_pm25_measurements_station_ts ON pm25_measurements(station_code, ts)`,
	}
}

//GetSQLInsertRun returns the SQL statement registering a new run
func GetSQLInsertRun(driver string) string {
	return `INSERT INTO pm25_runs (run_id, years, threshold, started_at, status, details) VALUES (` + placeholders(driver, 6) + `)`
}

//GetSQLUpdateRunStatus returns the SQL statement setting the final status of a run
func GetSQLUpdateRunStatus(driver string) string {
	if driver == "godror" {
		return `UPDATE pm25_runs SET status = :1, finished_at = :2, details = :3 WHERE run_id = :4`
	}
	return `UPDATE pm25_runs SET status = ?, finished_at = ?, details = ? WHERE run_id = ?`
}

//GetSQLSelectRun returns the SQL statement reading one run
func GetSQLSelectRun(driver string) string {
	bind := "?"
	if driver == "godror" {
		bind = ":1"
	}
	return `SELECT run_id, years, threshold, started_at, finished_at, status, details FROM pm25_runs WHERE run_id = ` + bind
}

//GetSQLDeleteStations returns the SQL statement emptying the station table
func GetSQLDeleteStations() string {
	return `DELETE FROM pm25_stations`
}

//GetSQLInsertStation returns the SQL statement inserting one station
func GetSQLInsertStation(driver string) string {
	return `INSERT INTO pm25_stations (station_code, location, voivodeship, old_codes) VALUES (` + placeholders(driver, 4) + `)`
}

//GetSQLInsertMeasurement returns the SQL statement inserting one enriched measurement
func GetSQLInsertMeasurement(driver string) string {
	return `INSERT INTO pm25_measurements (run_id, location, station_code, ts, pm25, daily_mean, over_norm, monthly_mean) VALUES (` + placeholders(driver, 8) + `)`
}

//GetSQLCountMeasurements returns the SQL statement counting the measurements of a run
func GetSQLCountMeasurements(driver string) string {
	bind := "?"
	if driver == "godror" {
		bind = ":1"
	}
	return `SELECT count(*) FROM pm25_measurements WHERE run_id = ` + bind
}
