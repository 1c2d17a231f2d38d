// Package refresh collapses concurrent credential-expiry failures into one
// renewal and resolves every affected call when that renewal ends.
//
// # Cycle model
//
// A [Coordinator] is either idle or running exactly one refresh cycle. The first
// authorization failure starts the cycle and issues a single renewal through a
// [Renewer]; failures observed while the cycle runs join its pending list. When
// the renewal succeeds the session store receives the new access credential and
// pending calls are replayed in the order they joined. When it fails the session
// is cleared and every pending call is rejected with [SessionExpiredError].
//
// # Architecture boundaries
//
// This package owns the cycle state machine, the pending list and the renewal
// endpoint client ([HTTPRenewer]). Attaching credentials to requests and deciding
// what counts as an authorization failure belong to the gateway in the root
// package.
//
// # What this package must NOT do
//
//   - Retry a renewal or replay a call more than once.
//   - Cancel queued calls when their caller's context ends.
//   - Write session state other than through [SessionStore].
package refresh
