package processor

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"pm25-timeseries/config"
	"pm25-timeseries/models"
	"pm25-timeseries/utils"
)

// columnIndex finds a metadata column by name. Runs of whitespace (the old code
// column header contains a line break) are compared as a single space.
func columnIndex(header []string, name string) int {
	want := strings.Join(strings.Fields(name), " ")
	for i, h := range header {
		if strings.Join(strings.Fields(h), " ") == want {
			return i
		}
	}
	return -1
}

func cell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// requireColumns returns the indexes of the named columns, or a
// MissingMetadataColumnsError listing every absent one.
func requireColumns(meta models.MetadataTable, names ...string) ([]int, error) {
	indexes := make([]int, len(names))
	var missing []string
	for i, name := range names {
		indexes[i] = columnIndex(meta.Header, name)
		if indexes[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingMetadataColumnsError{Columns: missing}
	}
	return indexes, nil
}

// codeMapping maps the current station code to the value of column valueIdx.
// Rows with an empty code are ignored; a repeated code keeps the last value.
func codeMapping(meta models.MetadataTable, codeIdx, valueIdx int, transform func(string) string) map[string]string {
	mapping := make(map[string]string, len(meta.Rows))
	for _, row := range meta.Rows {
		code := cell(row, codeIdx)
		if code == "" {
			continue
		}
		value := cell(row, valueIdx)
		if transform != nil {
			value = transform(value)
		}
		mapping[code] = value
	}
	return mapping
}

// HistoricalCodeMapping maps every retired station code to the current one.
// ok is false when the metadata has no old code column.
func HistoricalCodeMapping(meta models.MetadataTable) (mapping map[string]string, ok bool) {
	idx, err := requireColumns(meta, config.GetStationCodeColumn(), config.GetOldStationCodeColumn())
	if err != nil {
		return nil, false
	}
	mapping = map[string]string{}
	for _, row := range meta.Rows {
		current := cell(row, idx[0])
		old := cell(row, idx[1])
		if current == "" || old == "" {
			continue
		}
		for _, code := range strings.Split(old, ",") {
			if code = strings.TrimSpace(code); code != "" {
				mapping[code] = current
			}
		}
	}
	return mapping, true
}

// NormalizeStationCodes replaces historical codes in place. Codes without an
// entry are kept, they are assumed to be current already.
func NormalizeStationCodes(measurements []models.Measurement, mapping map[string]string) {
	for i := range measurements {
		code := strings.TrimSpace(measurements[i].StationCode)
		if current, ok := mapping[code]; ok {
			code = current
		}
		measurements[i].StationCode = code
	}
}

// LocationMapping maps the current station code to its location name.
func LocationMapping(meta models.MetadataTable) (map[string]string, error) {
	idx, err := requireColumns(meta, config.GetStationCodeColumn(), config.GetLocationColumn())
	if err != nil {
		return nil, err
	}
	return codeMapping(meta, idx[0], idx[1], nil), nil
}

// VoivodeshipMapping maps the current station code to its voivodeship, capitalized for display.
func VoivodeshipMapping(meta models.MetadataTable) (map[string]string, error) {
	idx, err := requireColumns(meta, config.GetStationCodeColumn(), config.GetVoivodeshipColumn())
	if err != nil {
		return nil, err
	}
	return codeMapping(meta, idx[0], idx[1], utils.CapitalizeName), nil
}

// JoinLocations sets the location of every measurement from the mapping and
// returns the distinct codes without a location, sorted. Those measurements
// keep a missing location.
func JoinLocations(measurements []models.Measurement, locations map[string]string) []string {
	unmatched := map[string]struct{}{}
	for i := range measurements {
		location := utils.NullString(locations[measurements[i].StationCode])
		if !location.Valid {
			unmatched[measurements[i].StationCode] = struct{}{}
		}
		measurements[i].Location = location
	}

	codes := make([]string, 0, len(unmatched))
	for code := range unmatched {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ParseStations returns one record per station of the metadata sheet, sorted by code.
func ParseStations(meta models.MetadataTable) ([]models.StationMetadata, error) {
	idx, err := requireColumns(meta, config.GetStationCodeColumn(), config.GetLocationColumn())
	if err != nil {
		return nil, err
	}
	oldIdx := columnIndex(meta.Header, config.GetOldStationCodeColumn())
	voivodeshipIdx := columnIndex(meta.Header, config.GetVoivodeshipColumn())

	byCode := map[string]models.StationMetadata{}
	for _, row := range meta.Rows {
		code := cell(row, idx[0])
		if code == "" {
			continue
		}
		if _, seen := byCode[code]; seen {
			log.WithField("station", code).Warn("Duplicate station code in metadata, keeping the last row")
		}
		station := models.StationMetadata{
			Code:        code,
			Location:    cell(row, idx[1]),
			Voivodeship: utils.CapitalizeName(cell(row, voivodeshipIdx)),
		}
		for _, old := range strings.Split(cell(row, oldIdx), ",") {
			if old = strings.TrimSpace(old); old != "" {
				station.OldCodes = append(station.OldCodes, old)
			}
		}
		byCode[code] = station
	}

	stations := make([]models.StationMetadata, 0, len(byCode))
	for _, s := range byCode {
		stations = append(stations, s)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].Code < stations[j].Code })
	return stations, nil
}
