package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxRenewalBody = 64 << 10

// HTTPRenewer calls the renewal endpoint of the auth API.
//
// The refresh token travels as a bearer credential; with TokenInBody it is also
// sent as {"refresh_token": "..."}. The answer must carry "access_token" and may
// carry a rotated "refresh_token".
type HTTPRenewer struct {
	client      *http.Client
	url         string
	tokenInBody bool
	userAgent   string
}

// NewHTTPRenewer returns a renewer posting to url through client. client must
// not route through the gateway, or a rejected renewal would recurse.
func NewHTTPRenewer(client *http.Client, url string, tokenInBody bool) *HTTPRenewer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRenewer{
		client:      client,
		url:         url,
		tokenInBody: tokenInBody,
	}
}

// WithUserAgent sets the User-Agent sent on renewal calls.
func (r *HTTPRenewer) WithUserAgent(ua string) *HTTPRenewer {
	r.userAgent = ua
	return r
}

type renewalRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type renewalResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Renew implements [Renewer].
func (r *HTTPRenewer) Renew(ctx context.Context, refreshToken string) (Renewal, error) {
	var body io.Reader
	if r.tokenInBody {
		data, err := json.Marshal(renewalRequest{RefreshToken: refreshToken})
		if err != nil {
			return Renewal{}, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return Renewal{}, err
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Renewal{}, fmt.Errorf("%w: %v", ErrRenewalUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRenewalBody))
	if err != nil {
		return Renewal{}, fmt.Errorf("%w: %v", ErrRenewalUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Renewal{}, fmt.Errorf("%w: status %d", ErrRenewalRejected, resp.StatusCode)
	}

	var out renewalResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Renewal{}, fmt.Errorf("%w: %v", ErrMalformedRenewal, err)
	}
	if out.AccessToken == "" {
		return Renewal{}, ErrMalformedRenewal
	}

	return Renewal{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}
