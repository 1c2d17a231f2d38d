package goAuthClient

import (
	"errors"

	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/session"
)

var (
	// ErrSessionExpired is matched by every error delivered to a call whose
	// session could not be renewed. The session has been cleared.
	ErrSessionExpired = refresh.ErrSessionExpired
	// ErrReplayUnauthorized is returned when a call replayed with a freshly
	// renewed credential is rejected again.
	ErrReplayUnauthorized = errors.New("replayed request unauthorized")
	// ErrResponseTooLarge is returned when a response body exceeds
	// GatewayConfig.MaxResponseBytes.
	ErrResponseTooLarge = errors.New("response body too large")
	// ErrInvalidRequest is returned for requests without a usable URL.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClientClosed is returned by calls made after [Client.Close].
	ErrClientClosed = errors.New("client closed")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = session.ErrNoSession
)

// SessionExpiredError carries the failed refresh cycle and the renewal cause.
type SessionExpiredError = refresh.SessionExpiredError
