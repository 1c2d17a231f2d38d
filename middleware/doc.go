// Package middleware exposes HTTP middleware that verifies bearer JWTs issued
// by a [jwt.Manager]. It guards the protected routes of the fake API in
// authtest and is not part of the client's request path.
//
// # Guards
//
//   - [RequireAccess] accepts access tokens only.
//   - [RequireRefresh] accepts refresh tokens only, for renewal endpoints.
//
// Each guard reads the Authorization header, verifies the token and injects
// the verified claims into the request context ([ClaimsFromContext]).
//
// # What this package must NOT do
//
//   - Issue tokens.
//   - Make authorization decisions beyond pass/reject.
package middleware
