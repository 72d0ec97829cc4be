package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "logs", "pm25.log")

	lg, err := NewLogger(fileName, 50)
	require.NoError(t, err)
	defer log.SetOutput(os.Stderr)

	lg.Info("ingest started")
	lg.Error(errors.New("sheet missing"))
	lg.WithFields(log.Fields{"year": 2020}).Info("with fields")
	lg.Close()

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(content), "ingest started")
	assert.Contains(t, string(content), "sheet missing")
	assert.Contains(t, string(content), "year=2020")
}

func TestNewLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "pm25.log")

	lg, err := NewLogger(fileName, 0)
	require.NoError(t, err)
	defer log.SetOutput(os.Stderr)

	for i := 0; i < 100; i++ {
		lg.Info("line")
	}
	lg.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	archived := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pm25_") && strings.HasSuffix(e.Name(), ".log") {
			archived++
		}
	}
	assert.Equal(t, 1, archived)
	assert.FileExists(t, fileName)
}

func TestNewLogger_Unwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	lg, err := NewLogger(filepath.Join(blocker, "pm25.log"), 50)
	defer log.SetOutput(os.Stderr)

	assert.Error(t, err)
	require.NotNil(t, lg)
	lg.Info("still usable")
	lg.Close()
}
