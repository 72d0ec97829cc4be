package repository

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pm25-timeseries/config"
	"pm25-timeseries/models"
	"pm25-timeseries/sqls"
)

type Repository interface {
	InitSchema() error
	StartRun(run *models.IngestRun) error
	FinishRun(runID uuid.UUID, details string) error
	FailRun(runID uuid.UUID, errorMessage string) error
	GetRun(runID uuid.UUID) (*models.IngestRun, error)
	SaveStations(stations []models.StationMetadata) error
	SaveEnriched(runID uuid.UUID, records []models.EnrichedRecord) error
	CountMeasurements(runID uuid.UUID) (int, error)
	Close()
}

var NewRepository = func(db *sql.DB, driver string) Repository {
	return &Impl{
		Db:     db,
		Driver: driver,
	}
}

type Impl struct {
	Db     *sql.DB
	Driver string

	mutexInserts sync.Mutex
}

func (i *Impl) Close() {
	if err := i.Db.Close(); err != nil {
		log.Error(err)
	}
}

// InitSchema creates the tables. On Oracle, tables that already exist are kept.
func (i *Impl) InitSchema() error {
	for _, stmt := range sqls.GetSQLCreateTables(i.Driver) {
		if _, err := i.Db.Exec(stmt); err != nil {
			if i.Driver == "godror" && strings.Contains(err.Error(), "ORA-00955") {
				continue
			}
			log.Error(err)
			return err
		}
	}
	return nil
}

func (i *Impl) StartRun(run *models.IngestRun) error {
	if run.RunID == uuid.Nil {
		run.RunID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = config.GetStatusRunning()

	_, err := i.Db.Exec(sqls.GetSQLInsertRun(i.Driver),
		run.RunID.String(),
		joinYears(run.Years),
		run.Threshold,
		run.StartedAt.Format(config.GetCSVDateLayoutLong()),
		run.Status,
		run.Details,
	)
	if err != nil {
		log.Error(err)
		return err
	}
	return nil
}

func (i *Impl) FinishRun(runID uuid.UUID, details string) error {
	return i.setStatus(runID, config.GetStatusFinished(), details)
}

func (i *Impl) FailRun(runID uuid.UUID, errorMessage string) error {
	return i.setStatus(runID, config.GetStatusError(), errorMessage)
}

func (i *Impl) setStatus(runID uuid.UUID, status, details string) error {
	result, err := i.Db.Exec(sqls.GetSQLUpdateRunStatus(i.Driver),
		status,
		time.Now().UTC().Format(config.GetCSVDateLayoutLong()),
		details,
		runID.String(),
	)
	if err != nil {
		log.Error(err)
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		err = errors.New("no run with id " + runID.String())
		log.Error(err)
		return err
	}
	return nil
}

func (i *Impl) GetRun(runID uuid.UUID) (*models.IngestRun, error) {
	var id, years, startedAt, status string
	var finishedAt, details sql.NullString
	var threshold sql.NullFloat64

	err := i.Db.QueryRow(sqls.GetSQLSelectRun(i.Driver), runID.String()).
		Scan(&id, &years, &threshold, &startedAt, &finishedAt, &status, &details)
	if err != nil {
		log.Error(err)
		return nil, err
	}

	run := &models.IngestRun{
		Threshold: threshold.Float64,
		Status:    status,
		Details:   details.String,
	}
	if run.RunID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if run.Years, err = splitYears(years); err != nil {
		return nil, err
	}
	if run.StartedAt, err = time.Parse(config.GetCSVDateLayoutLong(), startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		if run.FinishedAt, err = time.Parse(config.GetCSVDateLayoutLong(), finishedAt.String); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// SaveStations replaces the station table with the given stations.
func (i *Impl) SaveStations(stations []models.StationMetadata) error {
	i.mutexInserts.Lock()
	defer i.mutexInserts.Unlock()

	tx, err := i.Db.Begin()
	if err != nil {
		log.Error(err)
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sqls.GetSQLDeleteStations()); err != nil {
		log.Error(err)
		return err
	}
	stmt, err := tx.Prepare(sqls.GetSQLInsertStation(i.Driver))
	if err != nil {
		log.Error(err)
		return err
	}
	defer stmt.Close()

	for _, s := range stations {
		if _, err := stmt.Exec(s.Code, s.Location, s.Voivodeship, strings.Join(s.OldCodes, ",")); err != nil {
			log.Error(err)
			return err
		}
	}
	return tx.Commit()
}

// SaveEnriched inserts the records in batches, one transaction per batch.
func (i *Impl) SaveEnriched(runID uuid.UUID, records []models.EnrichedRecord) error {
	i.mutexInserts.Lock()
	defer i.mutexInserts.Unlock()

	batchSize := config.GetBatchSize()
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := i.insertBatch(runID, records[start:end]); err != nil {
			return err
		}
		log.WithFields(log.Fields{"run_id": runID, "inserted": end, "total": len(records)}).Debug("Inserted measurements")
	}
	return nil
}

func (i *Impl) insertBatch(runID uuid.UUID, records []models.EnrichedRecord) error {
	tx, err := i.Db.Begin()
	if err != nil {
		log.Error(err)
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(sqls.GetSQLInsertMeasurement(i.Driver))
	if err != nil {
		log.Error(err)
		return err
	}
	defer stmt.Close()

	id := runID.String()
	for _, r := range records {
		var ts sql.NullString
		if r.Timestamp.Valid {
			ts = sql.NullString{String: r.Timestamp.Time.Format(config.GetCSVDateLayoutLong()), Valid: true}
		}
		var overNorm sql.NullInt64
		if r.OverNorm.Valid {
			overNorm = sql.NullInt64{Int64: bool2int(r.OverNorm.Bool), Valid: true}
		}
		_, err := stmt.Exec(id, r.Location, r.StationCode, ts, r.PM25, r.DailyMean, overNorm, r.MonthlyMean)
		if err != nil {
			log.Error(err)
			return err
		}
	}
	return tx.Commit()
}

func (i *Impl) CountMeasurements(runID uuid.UUID) (int, error) {
	var count int
	err := i.Db.QueryRow(sqls.GetSQLCountMeasurements(i.Driver), runID.String()).Scan(&count)
	if err != nil {
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for j, y := range years {
		parts[j] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}

func splitYears(text string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, nil
}

func bool2int(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
