package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
)

func newTestManager(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("middleware-test-secret-0123456789"),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func guarded(t *testing.T, guard func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Errorf("claims missing from context")
		}
		w.Header().Set("X-Subject", claims.Subject)
		w.WriteHeader(http.StatusNoContent)
	}))
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequireAccess(t *testing.T) {
	m := newTestManager(t)
	h := guarded(t, RequireAccess(m))

	access, err := m.CreateAccess("7", "ada", "ada@example.com")
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}
	refresh, err := m.CreateRefresh("7")
	if err != nil {
		t.Fatalf("CreateRefresh: %v", err)
	}
	expired, err := m.CreateExpiredAccess("7", time.Minute)
	if err != nil {
		t.Fatalf("CreateExpiredAccess: %v", err)
	}

	if rr := serve(h, "Bearer "+access); rr.Code != http.StatusNoContent || rr.Header().Get("X-Subject") != "7" {
		t.Fatalf("valid access: code=%d subject=%q", rr.Code, rr.Header().Get("X-Subject"))
	}
	for name, authz := range map[string]string{
		"missing":      "",
		"wrong scheme": "Token " + access,
		"empty":        "Bearer ",
		"refresh kind": "Bearer " + refresh,
		"expired":      "Bearer " + expired,
		"garbage":      "Bearer not-a-jwt",
	} {
		rr := serve(h, authz)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s: expected json error body, got %q", name, ct)
		}
	}
}

func TestRequireRefresh(t *testing.T) {
	m := newTestManager(t)
	h := guarded(t, RequireRefresh(m))

	access, _ := m.CreateAccess("7", "ada", "")
	refresh, _ := m.CreateRefresh("7")

	if rr := serve(h, "Bearer "+refresh); rr.Code != http.StatusNoContent {
		t.Fatalf("valid refresh: expected 204, got %d", rr.Code)
	}
	if rr := serve(h, "Bearer "+access); rr.Code != http.StatusUnauthorized {
		t.Fatalf("access token on refresh guard: expected 401, got %d", rr.Code)
	}
}

func TestGuardNilVerifier(t *testing.T) {
	h := Guard(nil, jwt.KindAccess)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run")
	}))
	if rr := serve(h, "Bearer x"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
