package models

import (
	"strconv"
)

// ─── shared formatting helpers (package-private) ────────────────────────

// floatPrecision is the number of significant digits written for sensor
// values; 17 digits round-trip every float64 exactly.
const floatPrecision = 17

func itoa64(v int64) string { return strconv.FormatInt(v, 10) }
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', floatPrecision, 64)
}

// CSVRowWriter is the interface every loggable model must satisfy.
type CSVRowWriter interface {
	CSVHeader() []string
	CSVRow() []string
}
