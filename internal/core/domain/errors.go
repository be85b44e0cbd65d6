package domain

import "errors"

// Report lifecycle errors.
var (
	ErrReportNotFound    = errors.New("report not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAssignment        = errors.New("invalid assignment target")
	ErrConflict          = errors.New("report was modified concurrently")
	ErrValidation        = errors.New("invalid input")
	ErrDuplicateReport   = errors.New("report number already exists")
)

// Scope and access errors.
var (
	ErrForbidden = errors.New("access forbidden")
)

// Analytics errors.
var (
	ErrAggregationTimeout = errors.New("aggregation exceeded time budget")
)

// Directory and auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantExists       = errors.New("tenant code already exists")
)
