// Package goAuthClient is a client-side session and request-authorization layer.
//
// A [Client] holds the user's access/refresh credential pair, attaches the
// access credential to outbound API calls and transparently recovers from
// credential expiry: concurrent authorization failures collapse into a single
// renewal, and every affected call is replayed with the new credential, in the
// order it failed, or rejected with [ErrSessionExpired] when renewal fails.
//
// Clients are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// goAuthClient is the public surface: [Client], [Gateway], [Builder], [Config]
// and the request/response value types. Session state lives in the session
// package, the single-flight cycle in refresh, persistence in storage and the
// outbound round-tripper chain in transport.
//
// # What this package must NOT do
//
//   - Issue or validate credentials; the server owns their format.
//   - Navigate, render or otherwise react to logout beyond notifying observers.
//   - Log or audit credential values.
//   - Import any sub-package that re-imports goAuthClient (no import cycles).
package goAuthClient
