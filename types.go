package goAuthClient

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/goAuthClient/session"
)

// Identity is the authenticated user as returned by the API.
type Identity = session.Identity

// CredentialPair is the access/refresh credential pair.
type CredentialPair = session.CredentialPair

// Snapshot is an immutable view of the session.
type Snapshot = session.Snapshot

// SessionEvent is delivered to session observers.
type SessionEvent = session.Event

// SessionObserver receives session-changed notifications. Observers run
// synchronously once the store lock is released and may call back into the
// [Client], including [Client.Dispatch].
type SessionObserver = session.Observer

// Request is an API call. URL is either absolute or a path relative to
// APIConfig.BaseURL. Body is kept as bytes so the call can be replayed.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// NewJSONRequest builds a request with a JSON-encoded body.
func NewJSONRequest(method, url string, payload any) (Request, error) {
	req := Request{Method: method, URL: url, Header: http.Header{}}
	if payload == nil {
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	req.Body = body
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode <= 299
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}
