package domain

// Status tags every computed row with the outcome of the calculation.
// Missing data is an ordinary outcome and is never reported as an error.
type Status string

const (
	StatusOK               Status = "OK"
	StatusNoRule           Status = "NO_RULE"
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
)

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusOK, StatusNoRule, StatusInsufficientData:
		return true
	default:
		return false
	}
}

// String returns the status tag
func (s Status) String() string {
	return string(s)
}
