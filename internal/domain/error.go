package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound               = errors.New("entity not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInvalidExecContext     = errors.New("invalid database execution context")
	ErrReadDatabaseRow        = errors.New("failed to read database row")
	ErrPipelineAlreadyRunning = errors.New("pipeline already running")
	ErrCancelAlreadyRequested = errors.New("cancellation already requested")
	ErrBatchTooLarge          = errors.New("bulk action batch exceeds maximum size")
	ErrInvalidTransition      = errors.New("invalid job status transition")
	ErrRunLockHeld            = errors.New("pipeline run lock is held")
)
