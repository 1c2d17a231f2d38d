// Package authtest runs an in-process fake of the authentication API the
// client talks to: registration, login, credential renewal, profile and
// password change, plus a protected echo endpoint.
//
// Tokens are real HS256 JWTs issued by [jwt.Manager], so expiry, rotation and
// kind checks behave like a production server. The renewal endpoint can be
// gated, failed and counted from tests:
//
//	api := authtest.NewServer(t, authtest.Config{})
//	api.GateRefresh()           // renewals block until ReleaseRefresh
//	api.FailRefresh(true)       // renewals answer 401
//	api.RefreshCalls()          // renewals served so far
//
// Error responses use the {"error": "..."} body convention.
package authtest
