package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Client is the part of [*goAuthClient.Client] the service uses.
type Client interface {
	Dispatch(ctx context.Context, req goAuthClient.Request) (*goAuthClient.Response, error)
	DispatchUnauthenticated(ctx context.Context, req goAuthClient.Request) (*goAuthClient.Response, error)
	SetSession(ctx context.Context, identity goAuthClient.Identity, pair goAuthClient.CredentialPair) error
	UpdateIdentity(ctx context.Context, identity goAuthClient.Identity) error
	Logout(ctx context.Context) error
}

// Paths are the API routes, relative to the client's base URL.
type Paths struct {
	Register       string
	Login          string
	Profile        string
	ChangePassword string
}

// DefaultPaths returns the standard routes.
func DefaultPaths() Paths {
	return Paths{
		Register:       "/register",
		Login:          "/login",
		Profile:        "/profile",
		ChangePassword: "/change-password",
	}
}

// Config configures a [Service]. Zero fields get defaults.
type Config struct {
	Paths  Paths
	Logger *zap.Logger
}

// Service performs account calls through a client.
type Service struct {
	client    Client
	paths     Paths
	logger    *zap.Logger
	validator *validator.Validate
}

// NewService returns a service bound to client.
func NewService(client Client, cfg Config) *Service {
	paths := DefaultPaths()
	if cfg.Paths.Register != "" {
		paths.Register = cfg.Paths.Register
	}
	if cfg.Paths.Login != "" {
		paths.Login = cfg.Paths.Login
	}
	if cfg.Paths.Profile != "" {
		paths.Profile = cfg.Paths.Profile
	}
	if cfg.Paths.ChangePassword != "" {
		paths.ChangePassword = cfg.Paths.ChangePassword
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:    client,
		paths:     paths,
		logger:    logger,
		validator: newValidator(),
	}
}

// Register creates an account and installs the returned session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, s.paths.Register, in)
}

// Login authenticates and installs the returned session. Wrong credentials
// come back as an [*APIError] with status 401.
func (s *Service) Login(ctx context.Context, in LoginInput) (*User, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, s.paths.Login, in)
}

// Logout clears the local session. The API keeps no server-side session, so
// no request is sent.
func (s *Service) Logout(ctx context.Context) error {
	return s.client.Logout(ctx)
}

// Profile fetches the current user's profile and refreshes the stored
// identity with it.
func (s *Service) Profile(ctx context.Context) (*User, error) {
	req, err := goAuthClient.NewJSONRequest(http.MethodGet, s.paths.Profile, nil)
	if err != nil {
		return nil, err
	}
	return s.profileCall(ctx, req)
}

// UpdateProfile changes profile fields and refreshes the stored identity.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	if err := s.validate(update); err != nil {
		return nil, err
	}
	req, err := goAuthClient.NewJSONRequest(http.MethodPut, s.paths.Profile, update)
	if err != nil {
		return nil, err
	}
	return s.profileCall(ctx, req)
}

// ChangePassword changes the account password. The session is left as is.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	in := changePasswordInput{CurrentPassword: current, NewPassword: next}
	if err := s.validate(in); err != nil {
		return err
	}
	req, err := goAuthClient.NewJSONRequest(http.MethodPut, s.paths.ChangePassword, in)
	if err != nil {
		return err
	}
	resp, err := s.client.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return decodeAPIError(resp)
	}
	return nil
}

func (s *Service) authenticate(ctx context.Context, path string, payload any) (*User, error) {
	req, err := goAuthClient.NewJSONRequest(http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.DispatchUnauthenticated(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, decodeAPIError(resp)
	}

	var out tokenResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrMalformedResponse)
	}

	err = s.client.SetSession(ctx, out.User.Identity(), goAuthClient.CredentialPair{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	})
	if errors.Is(err, goAuthClient.ErrClientClosed) {
		return nil, err
	}
	if err != nil {
		// Installed in memory; only persistence failed.
		s.logger.Warn("session not persisted", zap.Int("user_id", out.User.UserID), zap.Error(err))
	}
	return &out.User, nil
}

func (s *Service) profileCall(ctx context.Context, req goAuthClient.Request) (*User, error) {
	resp, err := s.client.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, decodeAPIError(resp)
	}

	var u User
	if err := resp.DecodeJSON(&u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := s.client.UpdateIdentity(ctx, u.Identity()); err != nil {
		s.logger.Warn("update stored identity failed", zap.Int("user_id", u.UserID), zap.Error(err))
	}
	return &u, nil
}

func decodeAPIError(resp *goAuthClient.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := resp.DecodeJSON(apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
