package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"pm25-timeseries/config"
)

type Impl struct {
	LogFile        *os.File
	FileName       string
	MaxLogfileSize int64

	mutex       sync.Mutex
	lineCounter int
}

type Logger interface {
	Fatal(err error)
	Error(logMessage error)
	ErrorWithText(logMessage string)
	Warn(logMessage string)
	Info(logMessage string)
	Debug(logMessage string)
	WithFields(fields log.Fields) *log.Entry

	Close()
}

// NewLogger opens (or appends to) fileName. When the file cannot be opened the
// logger keeps writing to stderr and the error is returned alongside it.
var NewLogger = func(fileName string, maxLogfileSize int64) (Logger, error) {
	log.SetFormatter(&log.TextFormatter{QuoteEmptyFields: true, FullTimestamp: true})
	log.SetReportCaller(true)
	log.SetLevel(log.InfoLevel)

	impl := &Impl{FileName: fileName, MaxLogfileSize: maxLogfileSize}

	if dir := filepath.Dir(fileName); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			log.SetOutput(os.Stderr)
			return impl, err
		}
	}
	logFile, err := os.OpenFile(fileName, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		// Cannot open log file. Logging to stderr
		fmt.Fprintln(os.Stderr, err)
		log.SetOutput(os.Stderr)
		return impl, err
	}
	impl.LogFile = logFile
	log.SetOutput(logFile)

	return impl, nil
}

func (i *Impl) ErrorWithText(logMessage string) {
	i.write(func() { log.Error(logMessage) })
}

func (i *Impl) Error(err error) {
	i.write(func() { log.Error(err) })
}

func (i *Impl) Warn(logMessage string) {
	i.write(func() { log.Warn(logMessage) })
}

func (i *Impl) Info(logMessage string) {
	i.write(func() { log.Info(logMessage) })
}

func (i *Impl) Debug(logMessage string) {
	i.write(func() { log.Debug(logMessage) })
}

func (i *Impl) Fatal(err error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	log.Fatal(err)
}

// WithFields returns an entry on the shared logrus logger. Entries bypass the
// rotation counter.
func (i *Impl) WithFields(fields log.Fields) *log.Entry {
	return log.WithFields(fields)
}

func (i *Impl) write(emit func()) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	i.lineCounter++
	emit()

	if i.logFileIsTooLarge() {
		if err := i.replaceLogFile(); err != nil {
			log.Error(err)
		}
	}
}

func (i *Impl) replaceLogFile() error {
	log.Info("Archiving existing log file")

	err := i.LogFile.Close()
	if err != nil {
		return err
	}
	ext := filepath.Ext(i.FileName)
	newFileName := strings.TrimSuffix(i.FileName, ext) + "_" + time.Now().Format(config.GetFileDateLayout()) + ext
	renameErr := os.Rename(i.FileName, newFileName)

	// Create a new file
	i.LogFile, err = os.OpenFile(i.FileName, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return err
	}
	log.SetOutput(i.LogFile)
	return renameErr
}

func (i *Impl) logFileIsTooLarge() bool {
	if i.LogFile == nil || i.lineCounter < 100 {
		return false
	}
	i.lineCounter = 0

	fileInfo, err := os.Stat(i.LogFile.Name())
	if err != nil {
		log.Error("Error:", err)
		return false
	}
	return fileInfo.Size()/(1024*1024) >= i.MaxLogfileSize
}

func (i *Impl) Close() {
	if i.LogFile != nil {
		i.LogFile.Close()
	}
}
