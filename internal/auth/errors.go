package auth

import "errors"

// Failure taxonomy returned by the credential and session core. All
// component failures surface as one of these sentinels, possibly wrapped;
// callers translate them to HTTP status codes and keep the client-facing
// messages generic.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountUnverified     = errors.New("account not verified")
	ErrAlreadyExists         = errors.New("account already exists")
	ErrRateLimited           = errors.New("rate limited")
	ErrCrossOriginRejected   = errors.New("cross-origin request rejected")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrInvalidOrExpired      = errors.New("invalid or expired token")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
