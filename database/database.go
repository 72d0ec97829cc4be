package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	_ "github.com/godror/godror"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite = "sqlite3"
	DriverOracle = "godror"
)

// InitDB opens a connection to the database. driver is "sqlite3" or "godror";
// for sqlite file DSNs the parent directory is created.
func InitDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if err := ensureSQLiteDir(dsn); err != nil {
			log.Error(err)
			return nil, err
		}
	case DriverOracle:
	default:
		return nil, fmt.Errorf("unsupported DB driver %q (allowed: %s, %s)", driver, DriverSQLite, DriverOracle)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}

	if err := db.Ping(); err != nil {
		log.Error(err)
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
