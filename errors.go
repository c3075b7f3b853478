package secrets

import (
	"errors"

	"github.com/panyam/secrets/oauth2"
)

var (
	// ErrNotFound is returned when no user matches a lookup
	ErrNotFound = errors.New("user not found")

	// ErrCredentialMismatch is returned when a submitted password does not match
	ErrCredentialMismatch = errors.New("invalid credentials")

	// ErrAlreadyExists is returned when a username or provider identity is taken
	ErrAlreadyExists = errors.New("user already exists")

	// ErrUnauthenticated is returned when a request carries no valid session
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrUpstream wraps failures of the user store, session store or provider
	ErrUpstream = errors.New("upstream failure")

	// ErrProviderAuth is returned when a federated login is rejected
	ErrProviderAuth = oauth2.ErrProviderAuth
)

// Error codes reported by AuthError
const (
	ErrCodeMissingField = "missing_field"
	ErrCodeInvalidCreds = "invalid_credentials"
	ErrCodeUserExists   = "user_exists"
	ErrCodeInternal     = "internal_error"
)

// AuthError is a user-facing authentication failure.
// Message is safe to show to the client; Err keeps the underlying cause for logs.
type AuthError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// WithCause attaches the underlying error
func (e *AuthError) WithCause(err error) *AuthError {
	e.Err = err
	return e
}
