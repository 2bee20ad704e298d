package domain

import "errors"

var (
	// ErrInvalidPoint is returned for coordinates outside WGS 84 ranges.
	ErrInvalidPoint = errors.New("invalid geographic point")

	// ErrNoRoute means the provider found no route between the waypoints (ZERO_RESULTS).
	ErrNoRoute = errors.New("no route found")

	// ErrProvider covers every other non-OK provider status and transport failure.
	ErrProvider = errors.New("directions provider error")

	// ErrTimeout means the directions call exceeded its deadline.
	ErrTimeout = errors.New("directions request timed out")

	ErrSessionNotFound     = errors.New("session not found")
	ErrRouteNotReady       = errors.New("route not available")
	ErrLocationUnavailable = errors.New("location unavailable")
)
