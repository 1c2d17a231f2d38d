// Package jwt reads the claims a client needs from bearer credentials and
// issues test credentials for the fake auth API.
//
// [Inspect] decodes an access token without verifying its signature: the client
// never holds the verification key and only uses the claims to schedule a
// proactive refresh and to seed identity. [Manager] signs and verifies tokens
// and is used by authtest and the load-test command.
//
// # What this package must NOT do
//
//   - Treat an inspected token as trusted.
//   - Access session state or perform network I/O.
package jwt
