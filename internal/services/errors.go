package services

import "errors"

// Service errors
var (
	// ErrNotLoaded is returned by QueryService when the dataset a query
	// needs was not loaded at startup
	ErrNotLoaded = errors.New("dataset not loaded")

	// ErrRangeTooLarge is returned when a range query spans more snaps
	// than the service allows
	ErrRangeTooLarge = errors.New("range too large")

	ErrInvalidInput = errors.New("invalid input")
)
