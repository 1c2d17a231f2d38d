package account

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput wraps local validation failures; no request was sent.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded or
	// lacks required fields.
	ErrMalformedResponse = errors.New("malformed api response")
)

// APIError is a non-2xx API response.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Details != "" {
		return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, msg, e.Details)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
}

// IsStatus reports whether err is an [*APIError] with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
