package utils

import (
	"database/sql"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pm25-timeseries/config"
)

var (
	upperPolish = cases.Upper(language.Polish)
	lowerPolish = cases.Lower(language.Polish)
)

// timestampLayouts are tried in order. The first one is the layout of the archive sheets.
var timestampLayouts = []string{
	config.GetTimestampLayout(),
	config.GetCSVDateLayoutLong(),
	"2006-01-02 15:04",
	time.RFC3339,
	config.GetCSVDateLayoutShort(),
}

// ParseTimestamp parses a timestamp cell in UTC. Unparseable text gives an invalid NullTime.
func ParseTimestamp(text string) sql.NullTime {
	text = strings.TrimSpace(text)
	if text == "" {
		return sql.NullTime{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{}
}

// ParseReading parses a concentration cell, accepting a decimal comma.
// Empty and malformed cells, NaN and infinities give an invalid NullFloat64.
func ParseReading(text string) sql.NullFloat64 {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if text == "" {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TruncateToDay returns midnight of the calendar day of t, in t's location.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CapitalizeName upper-cases the first letter and lower-cases the rest,
// so "ŚLĄSKIE" and "śląskie" both become "Śląskie".
func CapitalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	_, size := utf8.DecodeRuneInString(name)
	return upperPolish.String(name[:size]) + lowerPolish.String(name[size:])
}

// FormatNullFloat renders a reading for CSV output, empty when missing.
func FormatNullFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

// FormatNullTime renders a timestamp for CSV output, empty when missing.
func FormatNullTime(v sql.NullTime) string {
	if !v.Valid {
		return ""
	}
	return v.Time.Format(config.GetCSVDateLayoutLong())
}

// FormatNullBool renders a flag for CSV output, empty when missing.
func FormatNullBool(v sql.NullBool) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatBool(v.Bool)
}

// ParseNullBool is the inverse of FormatNullBool.
func ParseNullBool(text string) sql.NullBool {
	b, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: b, Valid: true}
}

// NullString wraps text, treating blank text as missing.
func NullString(text string) sql.NullString {
	text = strings.TrimSpace(text)
	return sql.NullString{String: text, Valid: text != ""}
}

// PrintMemUsage logs the current heap statistics.
func PrintMemUsage() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	log.WithFields(log.Fields{
		"alloc_mib":       bToMb(m.Alloc),
		"total_alloc_mib": bToMb(m.TotalAlloc),
		"sys_mib":         bToMb(m.Sys),
		"num_gc":          m.NumGC,
	}).Info("Memory usage")
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
