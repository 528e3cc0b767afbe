package domain

import (
	"errors"
	"fmt"
)

// Domain-specific errors returned by the scoring services.
var (
	// ErrNotFound is the root of every "absent or outside tenant" error. The two
	// cases are never distinguished.
	ErrNotFound         = errors.New("not found")
	ErrEmployeeNotFound = fmt.Errorf("employee %w", ErrNotFound)
	ErrTaskNotFound     = fmt.Errorf("task %w", ErrNotFound)

	// ErrDependencyTimeout is returned when a store read exceeds its budget.
	// Callers may retry.
	ErrDependencyTimeout = errors.New("dependency timeout")

	// ErrDependencyUnavailable is returned when a store cannot be reached.
	// Callers may retry.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrCacheUnavailable is logged by the services and never returned to callers.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrMalformedHistory marks a persisted breakdown that no longer matches a
	// known shape.
	ErrMalformedHistory = errors.New("malformed score history")

	// Rescore dispatch errors. Both are retryable by the caller.
	ErrRescoreQueueFull  = errors.New("rescore queue is full")
	ErrDispatcherStopped = errors.New("rescore dispatcher is stopped")

	// Task workflow errors
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrTaskConflict      = errors.New("task was modified concurrently")
)
