package authtest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestRegisterLoginProfile(t *testing.T) {
	s := NewServer(t, Config{})

	resp, out := do(t, http.MethodPost, s.URL+"/register", "", map[string]any{
		"username": "ada_l", "email": "ada@example.com", "password": "Secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, out["access_token"])
	require.NotEmpty(t, out["refresh_token"])
	user := out["user"].(map[string]any)
	require.Equal(t, "ada_l", user["username"])
	require.EqualValues(t, 1, user["faction_id"])

	resp, out = do(t, http.MethodPost, s.URL+"/register", "", map[string]any{
		"username": "ada_l", "email": "ada@example.com", "password": "Secret123",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotEmpty(t, out["error"])

	resp, out = do(t, http.MethodPost, s.URL+"/login", "", map[string]any{
		"username": "ada_l", "password": "Secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access := out["access_token"].(string)

	resp, out = do(t, http.MethodGet, s.URL+"/profile", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ada@example.com", out["email"])

	resp, _ = do(t, http.MethodPost, s.URL+"/login", "", map[string]any{
		"username": "ada_l", "password": "Wrong1234",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	s := NewServer(t, Config{})

	for name, body := range map[string]map[string]any{
		"missing":  {"username": "bob"},
		"username": {"username": "b!", "email": "b@example.com", "password": "Secret123"},
		"email":    {"username": "bob", "email": "nope", "password": "Secret123"},
		"password": {"username": "bob", "email": "b@example.com", "password": "short"},
	} {
		resp, out := do(t, http.MethodPost, s.URL+"/register", "", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
		require.NotEmpty(t, out["error"], name)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	s := NewServer(t, Config{RotateRefresh: true})
	id := s.MustUser(t, "grace", "grace@example.com", "Secret123")
	access, refresh, err := s.IssueTokens(id)
	require.NoError(t, err)

	resp, _ := do(t, http.MethodPost, s.URL+"/refresh", access, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "access token must not renew")

	resp, out := do(t, http.MethodPost, s.URL+"/refresh", refresh, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, out["access_token"])
	require.NotEqual(t, access, out["access_token"])
	require.NotEmpty(t, out["refresh_token"])
	require.EqualValues(t, 1, s.RefreshCalls(), "rejected tokens never reach the handler")

	s.FailRefresh(true)
	resp, out = do(t, http.MethodPost, s.URL+"/refresh", refresh, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, out["error"])
}

func TestRefreshGate(t *testing.T) {
	s := NewServer(t, Config{})
	id := s.MustUser(t, "grace", "grace@example.com", "Secret123")
	_, refresh, err := s.IssueTokens(id)
	require.NoError(t, err)

	s.GateRefresh()
	done := make(chan int, 1)
	go func() {
		resp, _ := do(t, http.MethodPost, s.URL+"/refresh", refresh, nil)
		done <- resp.StatusCode
	}()

	select {
	case <-s.RefreshEntered():
	case <-time.After(2 * time.Second):
		t.Fatal("renewal never reached the handler")
	}
	select {
	case <-done:
		t.Fatal("gated renewal returned early")
	case <-time.After(20 * time.Millisecond):
	}

	s.ReleaseRefresh()
	require.Equal(t, http.StatusOK, <-done)
}

func TestExpiredAccessRejected(t *testing.T) {
	s := NewServer(t, Config{})
	id := s.MustUser(t, "grace", "grace@example.com", "Secret123")
	expired, err := s.ExpiredAccess(id)
	require.NoError(t, err)

	resp, out := do(t, http.MethodGet, s.URL+"/profile", expired, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, out["error"])
}

func TestChangePasswordAndUpdateProfile(t *testing.T) {
	s := NewServer(t, Config{})
	id := s.MustUser(t, "grace", "grace@example.com", "Secret123")
	access, _, err := s.IssueTokens(id)
	require.NoError(t, err)

	resp, _ := do(t, http.MethodPut, s.URL+"/change-password", access, map[string]string{
		"current_password": "Wrong1234", "new_password": "Secret456",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, s.URL+"/change-password", access, map[string]string{
		"current_password": "Secret123", "new_password": "Secret456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, s.URL+"/login", "", map[string]string{
		"username": "grace", "password": "Secret456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := do(t, http.MethodPut, s.URL+"/profile", access, map[string]string{
		"email": "hopper@example.com", "avatar_url": "https://example.com/a.png",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hopper@example.com", out["email"])
	u, ok := s.User(id)
	require.True(t, ok)
	require.Equal(t, "https://example.com/a.png", u.AvatarURL)
}

func TestLoginThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewServer(t, Config{Redis: rdb, MaxLoginAttempts: 2, LoginCooldown: time.Minute})
	s.MustUser(t, "ada_l", "ada@example.com", "Secret123")

	bad := map[string]any{"username": "ada_l", "password": "wrong"}
	for i := 0; i < 2; i++ {
		resp, _ := do(t, http.MethodPost, s.URL+"/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	good := map[string]any{"username": "ada_l", "password": "Secret123"}
	resp, out := do(t, http.MethodPost, s.URL+"/login", "", good)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "too many login attempts", out["error"])
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	mr.FastForward(time.Minute + time.Second)
	resp, _ = do(t, http.MethodPost, s.URL+"/login", "", good)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginThrottleResetOnSuccess(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewServer(t, Config{Redis: rdb, MaxLoginAttempts: 2, LoginCooldown: time.Minute})
	s.MustUser(t, "ada_l", "ada@example.com", "Secret123")

	bad := map[string]any{"username": "ada_l", "password": "wrong"}
	good := map[string]any{"username": "ada_l", "password": "Secret123"}

	resp, _ := do(t, http.MethodPost, s.URL+"/login", "", bad)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, s.URL+"/login", "", good)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, s.URL+"/login", "", bad)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, s.URL+"/login", "", good)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
