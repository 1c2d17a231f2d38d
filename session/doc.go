// Package session holds the client's authentication state: the identity, the
// access/refresh credential pair and the session status.
//
// # Binary encoding
//
// The session is persisted as one compact, versioned binary record under a
// single storage key, so the credential pair is always written as a unit.
// Decoding rejects records that carry only half of the pair.
//
// # Architecture boundaries
//
// This package owns the [Store] (state transitions, persistence, observers) and
// the [Snapshot] model. It does NOT send requests, renew credentials or decide
// when a credential is expired; those belong to the gateway and the refresh
// coordinator.
//
// # What this package must NOT do
//
//   - Import goAuthClient or refresh (no upward imports).
//   - Log or expose credential values outside [Snapshot].
//   - Persist the Refreshing status; it only exists while a renewal runs.
package session
