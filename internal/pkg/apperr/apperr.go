package apperr

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks duplicate or capacity violations (duplicate
	// assessment without force, job queue full).
	ErrConflict = errors.New("conflict")
	// ErrUpstreamUnavailable covers provider failures and per-call timeouts;
	// a timeout is indistinguishable from an outage at this level.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrQuotaExceeded maps provider rate-limit signals.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrContentFiltered marks a provider refusal.
	ErrContentFiltered = errors.New("content filtered")
	// ErrStorage marks blob upload or database write failures.
	ErrStorage = errors.New("storage failure")
	// ErrGeneration means the model answered but produced nothing usable
	// even after recovery (zero ideas, unreadable structure).
	ErrGeneration = errors.New("generation failure")
)
