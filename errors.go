package helix

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the token lifecycle.
var (
	// ErrMissingToken is returned by scoped token lookups when no
	// token is stored for the principal.
	ErrMissingToken = errors.New("no token stored for principal")

	// ErrInvalidRefreshToken marks a refresh rejection that is
	// permanent: the stored token is evicted and the renewal chain
	// for the principal terminates.
	ErrInvalidRefreshToken = errors.New("refresh token permanently invalid")
)

// AuthExchangeError is a failed authorization-code exchange: a non-200
// response or a malformed body from the token endpoint. No token is
// stored when it occurs.
type AuthExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization code exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("authorization code exchange failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}

// TransientRefreshError is a refresh failure that leaves the stored
// token untouched; the caller may retry.
type TransientRefreshError struct {
	Principal Principal
	Err       error
}

func (e *TransientRefreshError) Error() string {
	return fmt.Sprintf("transient refresh failure for principal %d: %v", e.Principal, e.Err)
}

func (e *TransientRefreshError) Unwrap() error {
	return e.Err
}

// InsufficientScopeError is returned when a stored token does not
// cover the scopes an operation requires.
type InsufficientScopeError struct {
	Principal Principal
	Missing   []Scope
}

func (e *InsufficientScopeError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		missing[i] = s.String()
	}
	return fmt.Sprintf("token for principal %d is missing scopes: %s", e.Principal, strings.Join(missing, ", "))
}

// PersistenceError is a serialization, compression, or encryption
// failure while reading or writing a stored token. It is fatal for the
// affected row and is never swallowed into an empty result.
type PersistenceError struct {
	Principal Principal
	Op        string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("token persistence %s failed for principal %d: %v", e.Op, e.Principal, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
