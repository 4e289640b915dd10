// Package common defines shared constants and sentinel errors used across
// the console layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrAuth covers bad credentials and an expired or invalid refresh token.
	ErrAuth = errors.New("authentication error")

	// ErrValidation covers client-side field checks and backend 4xx field rejections.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a mutated or deleted record no longer exists.
	ErrNotFound = errors.New("not found")

	// ErrFormat is returned when a response body is not in the expected format.
	ErrFormat = errors.New("unexpected response format")

	// ErrNetwork wraps transport-level failures.
	ErrNetwork = errors.New("network error")

	// Session lifecycle.
	ErrSessionExpired = errors.New("session expired")
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrNotConfirmed is returned when the operator declines a confirmation prompt.
	ErrNotConfirmed = errors.New("not confirmed")
)
