package auth

import (
	"fmt"

	"github.com/jrsteele09/go-meet-client/internal/errors"
)

var (
	// ErrRetry means the session was refreshed and the rejected call can be made again.
	ErrRetry = errors.New("session refreshed, retry the request")

	InvalidCredentialsErr  = errors.New("username and password are required")
	InvalidRegistrationErr = errors.New("invalid registration")
	WeakPasswordErr        = errors.New("password too weak")
	InvalidProviderErr     = errors.New("invalid sso provider")
	InvalidReturnToErr     = errors.New("invalid return url")
)

// LoginRequiredError tells the caller to send the user to the login page.
type LoginRequiredError struct {
	LoginPath string
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("login required: redirect to %s", e.LoginPath)
}
