// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidExternalRef is returned when a playlist reference is neither a
	// playlist URL, a playlist URI nor a bare catalog id.
	ErrInvalidExternalRef = errors.New("invalid playlist reference")
)
