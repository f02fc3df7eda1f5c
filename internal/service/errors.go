package service

import "errors"

// Sentinel errors returned by the services. Handlers map these to distinct
// HTTP outcomes with errors.Is.
var (
	// ErrNotFound indicates no score, certificate, or endorsement exists
	// for the given key.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation indicates a request that is well-formed but not
	// permitted, such as a self-endorsement or an illegal status
	// transition.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUnauthorized indicates an ownership or role mismatch.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstreamUnavailable marks an unreachable component score source.
	// It is recovered inside the score service by treating the component
	// as absent and is never surfaced to callers.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
