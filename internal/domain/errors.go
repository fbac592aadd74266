package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Every failed
// write or transition returns one of these; the caller decides whether
// to retry (ErrConflict), override (ErrCriteriaIncomplete), or abort.

var (
	// Store errors
	ErrNotFound          = errors.New("task not found")
	ErrCriterionNotFound = errors.New("no criterion at that position")
	ErrConflict          = errors.New("task modified since last read — re-read and retry")
	ErrInvalidState      = errors.New("operation not legal in current status")
	ErrBadPriority       = errors.New("priority must be P1..P4")
	ErrTitleRequired     = errors.New("title is required")

	// Transition errors
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrDependencyUnmet     = errors.New("task has incomplete blockers")
	ErrActiveLimitExceeded = errors.New("another task is already in progress")
	ErrResourceConflict    = errors.New("resource footprint overlaps an in-progress task")
	ErrCriteriaIncomplete  = errors.New("acceptance criteria not all checked — pass override to force")

	// Dependency graph errors
	ErrCycleDetected = errors.New("blocking edge would create a dependency cycle")

	// Session errors
	ErrSessionNotFound = errors.New("parallel session not found")
	ErrSessionClosed   = errors.New("parallel session is closed")
	ErrSessionBusy     = errors.New("session has tasks still in progress")
	ErrNotInSession    = errors.New("task is not a member of the session")
)
