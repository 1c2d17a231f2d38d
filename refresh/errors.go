package refresh

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is matched by every [SessionExpiredError].
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRefreshCredential is the cause when a cycle could not start because
	// the session holds no refresh token.
	ErrNoRefreshCredential = errors.New("no refresh credential")
	// ErrRenewalRejected is returned by [HTTPRenewer] for a non-2xx answer.
	ErrRenewalRejected = errors.New("renewal rejected")
	// ErrRenewalUnavailable is returned by [HTTPRenewer] when the endpoint could
	// not be reached.
	ErrRenewalUnavailable = errors.New("renewal endpoint unavailable")
	// ErrMalformedRenewal is returned when the renewal answer carries no usable
	// access token.
	ErrMalformedRenewal = errors.New("malformed renewal response")
)

// SessionExpiredError is the terminal outcome delivered to every call that was
// pending on a failed refresh cycle.
type SessionExpiredError struct {
	// CycleID identifies the failed cycle. Empty when no cycle was started.
	CycleID string
	// Cause is the renewal failure, or [ErrNoRefreshCredential].
	Cause error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause == nil {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%v: %v", ErrSessionExpired, e.Cause)
}

// Is reports whether target is [ErrSessionExpired].
func (e *SessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Cause
}
