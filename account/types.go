package account

import (
	"strconv"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username  string `json:"username" validate:"required,username"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FactionID int    `json:"faction_id,omitempty" validate:"omitempty,gte=1"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate lists the profile fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

// User is a profile as returned by the API.
type User struct {
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

// Identity converts the profile into the identity kept by the session store.
// Fields other than id, username and email go into Attributes.
func (u User) Identity() goAuthClient.Identity {
	attrs := map[string]string{
		"credits":    strconv.FormatFloat(u.Credits, 'f', 2, 64),
		"reputation": strconv.Itoa(u.Reputation),
		"faction_id": strconv.Itoa(u.FactionID),
	}
	if u.AvatarURL != "" {
		attrs["avatar_url"] = u.AvatarURL
	}
	if u.CurrentSystemID != 0 {
		attrs["current_system_id"] = strconv.Itoa(u.CurrentSystemID)
	}
	if u.CreatedAt != "" {
		attrs["created_at"] = u.CreatedAt
	}
	if u.LastLogin != "" {
		attrs["last_login"] = u.LastLogin
	}
	return goAuthClient.Identity{
		UserID:     strconv.Itoa(u.UserID),
		Username:   u.Username,
		Email:      u.Email,
		Attributes: attrs,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}
