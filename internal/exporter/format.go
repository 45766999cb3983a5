package exporter

import (
	"strconv"
	"time"
)

// formatFloat keeps full precision; results are compared numerically
// downstream so no rounding is applied
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatOptional renders a null value as an empty cell
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
