package models

import "errors"

// Error taxonomy shared by the engine and the API layer. Callers match with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidState        = errors.New("invalid state")
)

// ErrRateLimited is returned by upstream sources when the call budget is exhausted.
// It unwraps to ErrUpstreamUnavailable so readers treat it like any provider outage.
var ErrRateLimited = &rateLimitedError{}

type rateLimitedError struct{}

func (*rateLimitedError) Error() string { return "upstream rate limited" }

func (*rateLimitedError) Unwrap() error { return ErrUpstreamUnavailable }
