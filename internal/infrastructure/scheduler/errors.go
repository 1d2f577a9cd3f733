package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when a run is requested from a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrRunInProgress is returned when a manual run overlaps a scheduled one
	ErrRunInProgress = errors.New("consistency check already in progress")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
