package authtest

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/rate"
	"github.com/MrEthical07/goAuthClient/middleware"
	"github.com/MrEthical07/goAuthClient/password"
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FactionID int    `json:"faction_id,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type updateProfileRequest struct {
	Email     *string `json:"email,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decode(r, &in); err != nil || in.Username == "" || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if !usernamePattern.MatchString(in.Username) {
		writeErrorDetails(w, http.StatusBadRequest, "invalid username", "3-20 letters, digits or underscores")
		return
	}
	if !emailPattern.MatchString(in.Email) {
		writeErrorDetails(w, http.StatusBadRequest, "invalid email", "a valid email address is required")
		return
	}
	if err := password.CheckPolicy(in.Password); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "password does not meet requirements", err.Error())
		return
	}

	u, err := a.CreateUser(in.Username, in.Email, in.Password)
	if errors.Is(err, errUsernameTaken) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if in.FactionID != 0 {
		a.mu.Lock()
		a.users[u.ID].FactionID = in.FactionID
		a.mu.Unlock()
	}

	a.respondTokens(w, http.StatusCreated, u.ID)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil || in.Username == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if a.limiter != nil {
		if err := a.limiter.CheckLogin(r.Context(), in.Username); err != nil {
			a.writeLoginThrottled(w, r, in.Username, err)
			return
		}
	}

	a.mu.Lock()
	id, ok := a.byName[in.Username]
	var hash string
	if ok {
		hash = a.users[id].PasswordHash
	}
	a.mu.Unlock()

	match := false
	if ok {
		var err error
		match, err = a.hasher.Verify(in.Password, hash)
		match = match && err == nil
	}
	if !match {
		if a.limiter != nil {
			if err := a.limiter.IncrementLogin(r.Context(), in.Username); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				writeError(w, http.StatusServiceUnavailable, "login throttle unavailable")
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if a.limiter != nil {
		_ = a.limiter.ResetLogin(r.Context(), in.Username)
	}

	a.mu.Lock()
	a.users[id].LastLogin = time.Now()
	a.mu.Unlock()

	a.respondTokens(w, http.StatusOK, id)
}

func (a *API) writeLoginThrottled(w http.ResponseWriter, r *http.Request, username string, err error) {
	if !errors.Is(err, rate.ErrRateLimited) {
		writeError(w, http.StatusServiceUnavailable, "login throttle unavailable")
		return
	}
	if wait, err := a.limiter.RetryAfter(r.Context(), username); err == nil && wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
	writeError(w, http.StatusTooManyRequests, "too many login attempts")
}

func (a *API) respondTokens(w http.ResponseWriter, status, id int) {
	u, ok := a.User(id)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownUser.Error())
		return
	}
	access, refresh, err := a.issue(&u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         u.Profile(),
	})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	a.refreshCalls.Add(1)
	select {
	case a.entered <- struct{}{}:
	default:
	}

	a.gateMu.Lock()
	gate := a.gate
	a.gateMu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if a.failRefresh.Load() {
		writeError(w, http.StatusUnauthorized, "refresh token revoked")
		return
	}

	var subject string
	if a.cfg.RefreshInBody {
		var in refreshRequest
		if err := decode(r, &in); err != nil || in.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refresh_token is required")
			return
		}
		claims, err := a.manager.ParseRefresh(in.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		subject = claims.Subject
	} else {
		claims, _ := middleware.ClaimsFromContext(r.Context())
		subject = claims.Subject
	}

	id, _ := strconv.Atoi(subject)
	u, ok := a.User(id)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownUser.Error())
		return
	}

	access, err := a.manager.CreateAccess(subject, u.Username, u.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := refreshResponse{AccessToken: access}
	if a.cfg.RotateRefresh {
		if out.RefreshToken, err = a.manager.CreateRefresh(subject); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) currentUser(w http.ResponseWriter, r *http.Request) (int, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		writeError(w, http.StatusNotFound, errUnknownUser.Error())
		return 0, false
	}
	if _, ok := a.User(id); !ok {
		writeError(w, http.StatusNotFound, errUnknownUser.Error())
		return 0, false
	}
	return id, true
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	u, _ := a.User(id)
	writeJSON(w, http.StatusOK, u.Profile())
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	var in updateProfileRequest
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Email != nil && !emailPattern.MatchString(*in.Email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	a.mu.Lock()
	u := a.users[id]
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.AvatarURL != nil {
		u.AvatarURL = *in.AvatarURL
	}
	out := u.Profile()
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	var in changePasswordRequest
	if err := decode(r, &in); err != nil || in.CurrentPassword == "" || in.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "current_password and new_password are required")
		return
	}
	if err := password.CheckPolicy(in.NewPassword); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "new password does not meet requirements", err.Error())
		return
	}
	if in.CurrentPassword == in.NewPassword {
		writeError(w, http.StatusBadRequest, "new password must differ from the current one")
		return
	}

	u, _ := a.User(id)
	match, err := a.hasher.Verify(in.CurrentPassword, u.PasswordHash)
	if err != nil || !match {
		// Not 401: clients treat 401 as an expired access credential.
		writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}
	hash, err := a.hasher.Hash(in.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.mu.Lock()
	a.users[id].PasswordHash = hash
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// echo answers with the caller's subject, method and body.
func (a *API) echo(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]string{
		"subject":    claims.Subject,
		"method":     r.Method,
		"body":       string(body),
		"request_id": r.Header.Get("X-Request-ID"),
	})
}
