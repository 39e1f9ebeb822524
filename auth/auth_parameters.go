package auth

import (
	"github.com/jrsteele09/go-meet-client/users"
)

// Credentials are posted to the auth service login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration creates a new account. The password must pass
// ValidatePasswordStrength before it is sent.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	TimeZone string `json:"time_zone,omitempty"`
}

// LoginResult is the auth service's answer to a successful login.
type LoginResult struct {
	Message string         `json:"message"`
	User    *users.Profile `json:"user,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Query parameter names used on the SSO redirect URL.
const (
	ssoReturnToParam = "redirect_uri"
)
