package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/account"
	"github.com/MrEthical07/goAuthClient/jwt"
	promexport "github.com/MrEthical07/goAuthClient/metrics/export/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type command func(ctx context.Context, a *app, args []string, stdout io.Writer) error

var commands = map[string]command{
	"register":        cmdRegister,
	"login":           cmdLogin,
	"logout":          cmdLogout,
	"status":          cmdStatus,
	"profile":         cmdProfile,
	"update-profile":  cmdUpdateProfile,
	"change-password": cmdChangePassword,
	"call":            cmdCall,
	"watch":           cmdWatch,
}

func cmdRegister(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var in account.RegisterInput
	fs.StringVar(&in.Username, "username", "", "username")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Password, "password", "", "password")
	fs.IntVar(&in.FactionID, "faction", 0, "faction id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.accounts.Register(ctx, in)
	if err != nil {
		return err
	}
	return printJSON(stdout, user)
}

func cmdLogin(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	var in account.LoginInput
	fs.StringVar(&in.Username, "username", "", "username")
	fs.StringVar(&in.Password, "password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.accounts.Login(ctx, in)
	if err != nil {
		return err
	}
	return printJSON(stdout, user)
}

func cmdLogout(ctx context.Context, a *app, _ []string, stdout io.Writer) error {
	if err := a.accounts.Logout(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, "logged out")
	return err
}

type statusOutput struct {
	Status          string     `json:"status"`
	UserID          string     `json:"user_id,omitempty"`
	Username        string     `json:"username,omitempty"`
	Email           string     `json:"email,omitempty"`
	AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
}

func cmdStatus(_ context.Context, a *app, _ []string, stdout io.Writer) error {
	snap := a.client.Current()
	out := statusOutput{
		Status:   snap.Status.String(),
		UserID:   snap.Identity.UserID,
		Username: snap.Identity.Username,
		Email:    snap.Identity.Email,
	}
	if claims, err := jwt.Inspect(snap.Credentials.AccessToken); err == nil && !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt.UTC()
		out.AccessExpiresAt = &exp
	}
	return printJSON(stdout, out)
}

func cmdProfile(ctx context.Context, a *app, _ []string, stdout io.Writer) error {
	user, err := a.accounts.Profile(ctx)
	if err != nil {
		return err
	}
	return printJSON(stdout, user)
}

func cmdUpdateProfile(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	email := fs.String("email", "", "new email")
	avatar := fs.String("avatar-url", "", "new avatar url")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var update account.ProfileUpdate
	if *email != "" {
		update.Email = email
	}
	if *avatar != "" {
		update.AvatarURL = avatar
	}
	user, err := a.accounts.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}
	return printJSON(stdout, user)
}

func cmdChangePassword(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("change-password", flag.ContinueOnError)
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.accounts.ChangePassword(ctx, *current, *next); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, "password changed")
	return err
}

func cmdCall(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	method := fs.String("method", http.MethodGet, "HTTP method")
	body := fs.String("body", "", "JSON request body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("call: exactly one path required")
	}

	req := goAuthClient.Request{
		Method: strings.ToUpper(*method),
		URL:    fs.Arg(0),
		Header: http.Header{},
	}
	if *body != "" {
		req.Body = []byte(*body)
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(stdout, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode)); err != nil {
		return err
	}
	_, err = stdout.Write(append(resp.Body, '\n'))
	return err
}

func cmdWatch(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", 10*time.Second, "time between calls")
	count := fs.Int("count", 0, "stop after this many calls; 0 runs until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("watch: exactly one path required")
	}
	if *interval <= 0 {
		return errors.New("watch: interval must be > 0")
	}
	path := fs.Arg(0)

	if addr := a.cfg.Metrics.Addr; addr != "" {
		stopMetrics := serveMetrics(a, addr)
		defer stopMetrics()
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		start := time.Now()
		resp, err := a.client.Dispatch(ctx, goAuthClient.Request{Method: http.MethodGet, URL: path})
		switch {
		case errors.Is(err, goAuthClient.ErrSessionExpired):
			return err
		case err != nil:
			a.logger.Warn("watch call failed", zap.Int("n", n), zap.Error(err))
		default:
			fmt.Fprintf(stdout, "%s %d %s\n", start.UTC().Format(time.RFC3339), resp.StatusCode, time.Since(start).Round(time.Millisecond))
		}

		if *count > 0 && n >= *count {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func serveMetrics(a *app, addr string) func() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(promexport.NewCollector(a.client))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics listener", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
