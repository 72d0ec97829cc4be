package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_SQLite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	dsn := "file:" + filepath.Join(dir, "pm25.db") + "?_busy_timeout=5000"

	db, err := InitDB(DriverSQLite, dsn)

	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	assert.DirExists(t, dir)
}

func TestInitDB_Memory(t *testing.T) {
	db, err := InitDB(DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestInitDB_UnsupportedDriver(t *testing.T) {
	_, err := InitDB("postgres", "dsn")
	assert.ErrorContains(t, err, "unsupported DB driver")
}
