package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrJobAlreadyRunning is returned when a catalog run is requested while another is in flight
	ErrJobAlreadyRunning = errors.New("catalog sync job already in progress")
)
