// Package transport builds the outbound [http.RoundTripper] chain the gateway
// and the renewal client send through.
//
// # Middleware
//
//   - [RequestID] tags each call with an X-Request-ID (UUID) unless one is set.
//   - [UserAgent] sets a default User-Agent.
//   - [Logging] writes one zap line per call with status and duration.
//
// # Architecture boundaries
//
// This package only decorates requests and observes responses. Credential
// attachment and authorization-failure handling belong to the gateway.
//
// # What this package must NOT do
//
//   - Read or write session state.
//   - Retry requests or inspect response bodies.
//   - Log header values.
package transport
