package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/storage"
	"github.com/stretchr/testify/require"
)

type cliTest struct {
	srv    *authtest.Server
	cfg    string
	dir    string
	stdout bytes.Buffer
}

func newCLITest(t *testing.T) *cliTest {
	t.Helper()
	srv := authtest.NewServer(t, authtest.Config{})
	dir := t.TempDir()
	cfg := filepath.Join(dir, "cfg.yaml")
	body := "api:\n  base_url: " + srv.URL + "\nstorage:\n  backend: file\n  dir: " + filepath.Join(dir, "state") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))
	return &cliTest{srv: srv, cfg: cfg, dir: dir}
}

func (c *cliTest) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c.stdout.Reset()
	err := run(context.Background(), append([]string{"--config", c.cfg}, args...), &c.stdout)
	return c.stdout.String(), err
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), nil, &out)
	require.ErrorIs(t, err, errUsage)

	err = run(context.Background(), []string{"frobnicate"}, &out)
	require.ErrorIs(t, err, errUsage)
}

func TestRegisterPersistsAcrossRuns(t *testing.T) {
	c := newCLITest(t)

	out, err := c.run(t, "register", "-username", "alice", "-email", "alice@example.com", "-password", "Password123")
	require.NoError(t, err)
	require.Contains(t, out, `"username": "alice"`)

	out, err = c.run(t, "status")
	require.NoError(t, err)
	var status statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	require.Equal(t, "authenticated", status.Status)
	require.Equal(t, "alice", status.Username)
	require.NotNil(t, status.AccessExpiresAt)

	out, err = c.run(t, "profile")
	require.NoError(t, err)
	require.Contains(t, out, `"email": "alice@example.com"`)

	out, err = c.run(t, "logout")
	require.NoError(t, err)
	require.Equal(t, "logged out\n", out)

	out, err = c.run(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, `"status": "unauthenticated"`)
}

func TestCallRenewsExpiredCredential(t *testing.T) {
	c := newCLITest(t)
	id := c.srv.MustUser(t, "bob", "bob@example.com", "Password123")

	_, refresh, err := c.srv.IssueTokens(id)
	require.NoError(t, err)
	expired, err := c.srv.ExpiredAccess(id)
	require.NoError(t, err)

	fs, err := storage.NewFile(filepath.Join(c.dir, "state"))
	require.NoError(t, err)
	store := session.NewStore(fs, "goauth:session")
	require.NoError(t, store.SetSession(context.Background(),
		session.Identity{UserID: strconv.Itoa(id), Username: "bob"},
		session.CredentialPair{AccessToken: expired, RefreshToken: refresh},
	))

	out, err := c.run(t, "call", "-method", "post", "-body", `{"n":1}`, "/echo")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "200 OK\n"), out)
	require.Contains(t, out, `"method":"POST"`)
	require.Equal(t, int64(1), c.srv.RefreshCalls())
}

func TestWatchStopsOnExpiredSession(t *testing.T) {
	c := newCLITest(t)

	_, err := c.run(t, "register", "-username", "carol", "-email", "carol@example.com", "-password", "Password123")
	require.NoError(t, err)

	out, err := c.run(t, "watch", "-count", "2", "-interval", "1ms", "/profile")
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(out, " 200 "))

	_, err = c.run(t, "logout")
	require.NoError(t, err)

	_, err = c.run(t, "watch", "-count", "1", "/profile")
	require.ErrorIs(t, err, goAuthClient.ErrSessionExpired)
	require.Zero(t, c.srv.RefreshCalls())
}

func TestLoginWrongPassword(t *testing.T) {
	c := newCLITest(t)
	c.srv.MustUser(t, "dave", "dave@example.com", "Password123")

	_, err := c.run(t, "login", "-username", "dave", "-password", "nope")
	require.Error(t, err)
	require.Zero(t, c.srv.RefreshCalls())
}
