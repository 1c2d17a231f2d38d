// Package account implements the calls that depend on the session but are
// not part of it: registration, login, logout, profile reads and updates and
// password changes.
//
// Register and Login go out without a credential and end by installing the
// returned identity and credential pair in the session store. Every other
// call goes through the client's gateway, so an expired access credential is
// renewed transparently.
//
// Inputs are validated locally with struct tags before any request is sent.
// Non-2xx responses are returned as [*APIError], decoded from the API's
// {"error": "...", "details": "..."} body.
package account
