package authtest

import (
	"net/http/httptest"
	"testing"
)

// Server is an [API] listening on a local httptest server.
type Server struct {
	*API
	URL string

	srv *httptest.Server
}

// NewServer starts the fake API and stops it when the test ends.
func NewServer(tb testing.TB, cfg Config) *Server {
	tb.Helper()

	api, err := NewAPI(cfg)
	if err != nil {
		tb.Fatalf("authtest: %v", err)
	}
	srv := httptest.NewServer(api.Handler())
	s := &Server{API: api, URL: srv.URL, srv: srv}
	tb.Cleanup(s.Close)
	return s
}

// Close releases gated renewals and shuts the server down.
func (s *Server) Close() {
	s.ReleaseRefresh()
	s.srv.Close()
}

// MustUser creates a user and returns its id, failing the test on error.
func (s *Server) MustUser(tb testing.TB, username, email, pw string) int {
	tb.Helper()
	u, err := s.CreateUser(username, email, pw)
	if err != nil {
		tb.Fatalf("authtest: create user: %v", err)
	}
	return u.ID
}
