package core

import "errors"

// Reconciliation errors
var (
	ErrEmailTaken       = errors.New("email already registered")         // 409 Conflict
	ErrIdentityConflict = errors.New("email linked to another identity") // 409 Conflict
	ErrAccountNotFound  = errors.New("account not found")                // 404 Not Found
)

// Password lifecycle errors
var (
	ErrPasswordAlreadySet = errors.New("password already set")           // 409 Conflict
	ErrPasswordNotSet     = errors.New("no password set for account")    // 400 Bad Request
	ErrInvalidCredentials = errors.New("invalid email or password")      // 401 Unauthorized
	ErrInvalidResetToken  = errors.New("invalid or expired reset token") // 400 Bad Request
)

// Session errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header") // 401
	ErrInvalidToken      = errors.New("invalid session token")        // 401
	ErrSessionNotFound   = errors.New("session not found")            // 401
	ErrSessionExpired    = errors.New("session expired")              // 401
	ErrCacheNotFound     = errors.New("session not found in cache")
)

// Validation errors (client input)
var (
	ErrEmailRequired    = errors.New("email is required")     // 400
	ErrPasswordRequired = errors.New("password is required")  // 400
	ErrPasswordTooShort = errors.New("password is too short") // 400
	ErrPasswordTooLong  = errors.New("password is too long")  // 400
	ErrInvalidEmail     = errors.New("invalid email format")  // 400
)

// Storage errors
var (
	// ErrVersionConflict means a concurrent update won the race. Services
	// re-read and re-apply a bounded number of times; if every attempt
	// loses, the error surfaces as a server-side failure.
	ErrVersionConflict = errors.New("account version conflict")
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired     = errors.New("storage adapter is required") // 500
	ErrHTTPAdapterRequired = errors.New("http adapter is required")    // 500
)
