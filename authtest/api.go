package authtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/rate"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/middleware"
	"github.com/MrEthical07/goAuthClient/password"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Config configures the fake API. Zero values get usable defaults.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secret     []byte
	// RotateRefresh makes the renewal endpoint return a new refresh token too.
	RotateRefresh bool
	// RefreshInBody makes the renewal endpoint read the refresh token from a
	// {"refresh_token"} body instead of the Authorization header.
	RefreshInBody bool
	// DefaultFactionID is assigned when registration omits faction_id.
	DefaultFactionID int

	// Redis enables login throttling: after MaxLoginAttempts failures within
	// LoginCooldown, login answers 429 for that username.
	Redis            redis.UniversalClient
	MaxLoginAttempts int
	LoginCooldown    time.Duration
}

// User is the server-side account record. [User.Profile] is what the API
// returns.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	AvatarURL    string
	Credits      float64
	Reputation   int
	FactionID    int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Profile is the JSON form of a user.
type Profile struct {
	UserID          int     `json:"user_id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	AvatarURL       string  `json:"avatar_url,omitempty"`
	Credits         float64 `json:"credits"`
	Reputation      int     `json:"reputation"`
	FactionID       int     `json:"faction_id"`
	CurrentSystemID int     `json:"current_system_id,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
	LastLogin       string  `json:"last_login,omitempty"`
}

// Profile returns the user's JSON form.
func (u *User) Profile() Profile {
	p := Profile{
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		AvatarURL:  u.AvatarURL,
		Credits:    u.Credits,
		Reputation: u.Reputation,
		FactionID:  u.FactionID,
	}
	if !u.CreatedAt.IsZero() {
		p.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !u.LastLogin.IsZero() {
		p.LastLogin = u.LastLogin.UTC().Format(time.RFC3339)
	}
	return p
}

// TokenResponse is the body of successful register and login calls.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         Profile `json:"user"`
}

// API is the fake server's state and handlers.
type API struct {
	cfg     Config
	manager *jwt.Manager
	hasher  *password.Argon2
	limiter *rate.Limiter

	mu     sync.Mutex
	users  map[int]*User
	byName map[string]int
	nextID int

	refreshCalls atomic.Int64
	failRefresh  atomic.Bool
	gateMu       sync.Mutex
	gate         chan struct{}
	entered      chan struct{}
}

// NewAPI builds the fake API.
func NewAPI(cfg Config) (*API, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte("authtest-signing-secret-do-not-use")
	}
	if cfg.DefaultFactionID == 0 {
		cfg.DefaultFactionID = 1
	}

	manager, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.Secret,
	})
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewArgon2(password.FastConfig())
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Redis != nil {
		if cfg.MaxLoginAttempts <= 0 {
			cfg.MaxLoginAttempts = 5
		}
		if cfg.LoginCooldown <= 0 {
			cfg.LoginCooldown = 15 * time.Minute
		}
		limiter, err = rate.New(cfg.Redis, rate.Config{
			Prefix:           "authtest",
			MaxLoginAttempts: cfg.MaxLoginAttempts,
			LoginCooldown:    cfg.LoginCooldown,
		})
		if err != nil {
			return nil, err
		}
	}

	return &API{
		cfg:     cfg,
		manager: manager,
		hasher:  hasher,
		limiter: limiter,
		users:   make(map[int]*User),
		byName:  make(map[string]int),
		nextID:  1,
		entered: make(chan struct{}, 1024),
	}, nil
}

// Manager returns the token issuer, for minting tokens directly in tests.
func (a *API) Manager() *jwt.Manager {
	return a.manager
}

// Handler returns the chi router serving the API.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/register", a.register)
	r.Post("/login", a.login)
	if a.cfg.RefreshInBody {
		r.Post("/refresh", a.refresh)
	} else {
		r.With(middleware.RequireRefresh(a.manager)).Post("/refresh", a.refresh)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAccess(a.manager))
		r.Get("/profile", a.getProfile)
		r.Put("/profile", a.updateProfile)
		r.Put("/change-password", a.changePassword)
		r.HandleFunc("/echo", a.echo)
	})

	r.Get("/public", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/teapot", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTeapot, "short and stout")
	})

	return r
}

// CreateUser registers a user directly, bypassing HTTP.
func (a *API) CreateUser(username, email, pw string) (*User, error) {
	hash, err := a.hasher.Hash(pw)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byName[username]; ok {
		return nil, errUsernameTaken
	}
	u := &User{
		ID:           a.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Credits:      1000,
		FactionID:    a.cfg.DefaultFactionID,
		CreatedAt:    time.Now(),
	}
	a.nextID++
	a.users[u.ID] = u
	a.byName[username] = u.ID
	return u, nil
}

// User returns a copy of the user with id.
func (a *API) User(id int) (User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// IssueTokens mints a fresh pair for user id.
func (a *API) IssueTokens(id int) (access, refresh string, err error) {
	u, ok := a.User(id)
	if !ok {
		return "", "", errUnknownUser
	}
	return a.issue(&u)
}

// ExpiredAccess mints an access token for user id that expired a minute ago.
func (a *API) ExpiredAccess(id int) (string, error) {
	return a.manager.CreateExpiredAccess(strconv.Itoa(id), time.Minute)
}

// RefreshCalls returns the number of renewal requests that reached the handler.
func (a *API) RefreshCalls() int64 {
	return a.refreshCalls.Load()
}

// FailRefresh makes the renewal endpoint answer 401 while fail is true.
func (a *API) FailRefresh(fail bool) {
	a.failRefresh.Store(fail)
}

// GateRefresh makes renewal requests block until [API.ReleaseRefresh].
func (a *API) GateRefresh() {
	a.gateMu.Lock()
	defer a.gateMu.Unlock()
	a.gate = make(chan struct{})
}

// ReleaseRefresh unblocks gated renewal requests and removes the gate.
func (a *API) ReleaseRefresh() {
	a.gateMu.Lock()
	defer a.gateMu.Unlock()
	if a.gate != nil {
		close(a.gate)
		a.gate = nil
	}
}

// RefreshEntered receives once per renewal request that reached the handler.
func (a *API) RefreshEntered() <-chan struct{} {
	return a.entered
}

func (a *API) issue(u *User) (string, string, error) {
	uid := strconv.Itoa(u.ID)
	access, err := a.manager.CreateAccess(uid, u.Username, u.Email)
	if err != nil {
		return "", "", err
	}
	refresh, err := a.manager.CreateRefresh(uid)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

var (
	errUsernameTaken = errors.New("username already exists")
	errUnknownUser   = errors.New("user does not exist")
)

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeErrorDetails(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, map[string]string{"error": msg, "details": details})
}

func decode(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
