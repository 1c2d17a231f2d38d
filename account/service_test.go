package account

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newAccountTest(t *testing.T, cfg authtest.Config) (*Service, *goAuthClient.Client, *authtest.Server) {
	t.Helper()
	api := authtest.NewServer(t, cfg)
	client, err := goAuthClient.New().WithBaseURL(api.URL).Build()
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return NewService(client, Config{}), client, api
}

func TestRegisterInstallsSession(t *testing.T) {
	svc, client, _ := newAccountTest(t, authtest.Config{})
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "ada_l", Email: "ada@example.com", Password: "Secret123", FactionID: 3})
	require.NoError(t, err)
	require.Equal(t, "ada_l", u.Username)
	require.Equal(t, 3, u.FactionID)

	snap := client.Current()
	require.True(t, snap.Authenticated())
	require.Equal(t, strconv.Itoa(u.UserID), snap.Identity.UserID)
	require.Equal(t, "ada@example.com", snap.Identity.Email)
	require.Equal(t, "3", snap.Identity.Attributes["faction_id"])
	require.NotEmpty(t, snap.Credentials.AccessToken)
	require.NotEmpty(t, snap.Credentials.RefreshToken)
}

func TestRegisterValidatesLocally(t *testing.T) {
	svc, client, api := newAccountTest(t, authtest.Config{})
	ctx := context.Background()

	for name, in := range map[string]RegisterInput{
		"short username": {Username: "ab", Email: "a@example.com", Password: "Secret123"},
		"bad username":   {Username: "a b c", Email: "a@example.com", Password: "Secret123"},
		"bad email":      {Username: "abc", Email: "nope", Password: "Secret123"},
		"short password": {Username: "abc", Email: "a@example.com", Password: "short"},
	} {
		_, err := svc.Register(ctx, in)
		require.ErrorIs(t, err, ErrInvalidInput, name)
	}
	_, exists := api.User(1)
	require.False(t, exists, "no request may reach the server")
	require.False(t, client.Authenticated())
}

func TestRegisterConflict(t *testing.T) {
	svc, _, api := newAccountTest(t, authtest.Config{})
	api.MustUser(t, "ada_l", "ada@example.com", "Secret123")

	_, err := svc.Register(context.Background(), RegisterInput{Username: "ada_l", Email: "other@example.com", Password: "Secret123"})
	require.True(t, IsStatus(err, http.StatusConflict), "got %v", err)
}

func TestLoginWrongPasswordDoesNotRefresh(t *testing.T) {
	svc, client, api := newAccountTest(t, authtest.Config{})
	api.MustUser(t, "grace", "grace@example.com", "Secret123")

	_, err := svc.Login(context.Background(), LoginInput{Username: "grace", Password: "Wrong1234"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.NotEmpty(t, apiErr.Message)
	require.Zero(t, api.RefreshCalls())
	require.False(t, client.Authenticated())
}

func TestLoginThrottledSurfacesStatus(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc, client, api := newAccountTest(t, authtest.Config{Redis: rdb, MaxLoginAttempts: 1})
	api.MustUser(t, "grace", "grace@example.com", "Secret123")

	_, err := svc.Login(context.Background(), LoginInput{Username: "grace", Password: "Wrong1234"})
	require.True(t, IsStatus(err, http.StatusUnauthorized), "got %v", err)

	_, err = svc.Login(context.Background(), LoginInput{Username: "grace", Password: "Secret123"})
	require.True(t, IsStatus(err, http.StatusTooManyRequests), "got %v", err)
	require.False(t, client.Authenticated())
	require.Zero(t, api.RefreshCalls())
}

func TestProfileRenewsExpiredAccess(t *testing.T) {
	svc, client, api := newAccountTest(t, authtest.Config{})
	ctx := context.Background()
	id := api.MustUser(t, "grace", "grace@example.com", "Secret123")

	_, refresh, err := api.IssueTokens(id)
	require.NoError(t, err)
	expired, err := api.ExpiredAccess(id)
	require.NoError(t, err)
	require.NoError(t, client.SetSession(ctx, goAuthClient.Identity{UserID: strconv.Itoa(id)}, goAuthClient.CredentialPair{
		AccessToken:  expired,
		RefreshToken: refresh,
	}))

	u, err := svc.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "grace", u.Username)
	require.EqualValues(t, 1, api.RefreshCalls())

	snap := client.Current()
	require.NotEqual(t, expired, snap.Credentials.AccessToken)
	require.Equal(t, refresh, snap.Credentials.RefreshToken)
	require.Equal(t, "grace", snap.Identity.Username, "profile refreshes the stored identity")
}

func TestUpdateProfile(t *testing.T) {
	svc, client, api := newAccountTest(t, authtest.Config{})
	ctx := context.Background()
	api.MustUser(t, "grace", "grace@example.com", "Secret123")
	_, err := svc.Login(ctx, LoginInput{Username: "grace", Password: "Secret123"})
	require.NoError(t, err)

	email := "hopper@example.com"
	avatar := "https://example.com/grace.png"
	u, err := svc.UpdateProfile(ctx, ProfileUpdate{Email: &email, AvatarURL: &avatar})
	require.NoError(t, err)
	require.Equal(t, email, u.Email)

	snap := client.Current()
	require.Equal(t, email, snap.Identity.Email)
	require.Equal(t, avatar, snap.Identity.Attributes["avatar_url"])

	bad := "not-an-email"
	_, err = svc.UpdateProfile(ctx, ProfileUpdate{Email: &bad})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestChangePassword(t *testing.T) {
	svc, client, api := newAccountTest(t, authtest.Config{})
	ctx := context.Background()
	api.MustUser(t, "grace", "grace@example.com", "Secret123")
	_, err := svc.Login(ctx, LoginInput{Username: "grace", Password: "Secret123"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, "Secret123", "Secret123"), ErrInvalidInput)
	require.True(t, IsStatus(svc.ChangePassword(ctx, "Wrong1234", "Secret456"), http.StatusBadRequest))
	require.NoError(t, svc.ChangePassword(ctx, "Secret123", "Secret456"))
	require.True(t, client.Authenticated(), "password change keeps the session")

	require.NoError(t, svc.Logout(ctx))
	_, err = svc.Login(ctx, LoginInput{Username: "grace", Password: "Secret456"})
	require.NoError(t, err)
}

func TestLogoutThenProfileExpires(t *testing.T) {
	svc, client, api := newAccountTest(t, authtest.Config{})
	ctx := context.Background()
	api.MustUser(t, "grace", "grace@example.com", "Secret123")
	_, err := svc.Login(ctx, LoginInput{Username: "grace", Password: "Secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))
	require.False(t, client.Authenticated())

	_, err = svc.Profile(ctx)
	require.True(t, errors.Is(err, goAuthClient.ErrSessionExpired), "got %v", err)
	require.Zero(t, api.RefreshCalls(), "no refresh credential, no renewal call")
}

func TestRevokedRefreshExpiresSession(t *testing.T) {
	svc, client, api := newAccountTest(t, authtest.Config{})
	ctx := context.Background()
	id := api.MustUser(t, "grace", "grace@example.com", "Secret123")
	_, refresh, err := api.IssueTokens(id)
	require.NoError(t, err)
	expired, err := api.ExpiredAccess(id)
	require.NoError(t, err)
	require.NoError(t, client.SetSession(ctx, goAuthClient.Identity{UserID: strconv.Itoa(id)}, goAuthClient.CredentialPair{
		AccessToken:  expired,
		RefreshToken: refresh,
	}))

	api.FailRefresh(true)
	_, err = svc.Profile(ctx)
	var expiredErr *goAuthClient.SessionExpiredError
	require.ErrorAs(t, err, &expiredErr)
	require.NotEmpty(t, expiredErr.CycleID)
	require.False(t, client.Authenticated())
}
