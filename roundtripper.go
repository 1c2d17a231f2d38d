package goAuthClient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

type gatewayRoundTripper struct {
	gateway *Gateway
}

// RoundTripper adapts the gateway to [http.RoundTripper], so an [http.Client]
// gets credential attachment and transparent refresh. Request bodies are read
// into memory up front because a replay must resend them.
func (g *Gateway) RoundTripper() http.RoundTripper {
	return &gatewayRoundTripper{gateway: g}
}

func (rt *gatewayRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			return nil, err
		}
		body = data
	}

	resp, err := rt.gateway.Dispatch(r.Context(), Request{
		Method: r.Method,
		URL:    r.URL.String(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        resp.Header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       r,
	}, nil
}
