package processor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingDataRows        = errors.New("no data rows found")
	ErrMissingMetadataColumns = errors.New("required metadata columns missing")
)

// MissingDataRowsError is returned when no row of a yearly sheet carries a timestamp.
type MissingDataRowsError struct {
	Year int
}

func (e *MissingDataRowsError) Error() string {
	return fmt.Sprintf("no rows with timestamps in the sheet for year %d", e.Year)
}

func (e *MissingDataRowsError) Is(target error) bool {
	return target == ErrMissingDataRows
}

// MissingMetadataColumnsError names the metadata columns that could not be found.
type MissingMetadataColumnsError struct {
	Columns []string
}

func (e *MissingMetadataColumnsError) Error() string {
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return "metadata lacks column(s) " + strings.Join(quoted, ", ")
}

func (e *MissingMetadataColumnsError) Is(target error) bool {
	return target == ErrMissingMetadataColumns
}
