package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDataQuality is matched by every DataQualityError
var ErrDataQuality = errors.New("data quality fault")

// ValidationError describes a single malformed input row or parameter.
// Row is the zero-based input row index, or -1 when the fault is not tied
// to a row.
type ValidationError struct {
	Table   string      `json:"table"`
	Row     int         `json:"row"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Row >= 0 {
		return fmt.Sprintf("%s row %d: %s: %s", ve.Table, ve.Row, ve.Field, ve.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ve.Table, ve.Field, ve.Message)
}

// DataQualityError collects validation faults found in one input set
type DataQualityError struct {
	Faults []ValidationError `json:"faults"`
}

// maxReportedFaults bounds the message length, all faults stay in Faults
const maxReportedFaults = 5

// Error implements the error interface
func (e *DataQualityError) Error() string {
	msgs := make([]string, 0, maxReportedFaults)
	for i, f := range e.Faults {
		if i == maxReportedFaults {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(e.Faults)-maxReportedFaults))
			break
		}
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%s: %s", ErrDataQuality, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrDataQuality) true
func (e *DataQualityError) Is(target error) bool {
	return target == ErrDataQuality
}

// Faults accumulates validation errors while scanning a table
type Faults []ValidationError

// Add records a fault
func (f *Faults) Add(table string, row int, field, message string, value interface{}) {
	*f = append(*f, ValidationError{Table: table, Row: row, Field: field, Message: message, Value: value})
}

// Err returns a *DataQualityError when any fault was recorded, nil otherwise
func (f Faults) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &DataQualityError{Faults: append([]ValidationError(nil), f...)}
}
