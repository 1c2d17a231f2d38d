// Package rate throttles failed logins with fixed-window Redis counters:
// INCR, plus EXPIRE on the first hit of a window. Keys are
// "<prefix>:login:<username>".
//
// The fake API in authtest uses it to answer 429 once a username runs out of
// attempts.
package rate
