package auth

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var providerPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// Validator checks user input before it is sent to the auth service.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCredentials requires both fields to be present
func (v *Validator) ValidateCredentials(c Credentials) error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return InvalidCredentialsErr
	}
	return nil
}

// ValidateRegistration checks the username, email and password strength
func (v *Validator) ValidateRegistration(r Registration) error {
	username := strings.TrimSpace(r.Username)
	if username == "" {
		return fmt.Errorf("%w: username is required", InvalidRegistrationErr)
	}
	if strings.ContainsAny(username, "/?#") {
		return fmt.Errorf("%w: username must not contain '/', '?' or '#'", InvalidRegistrationErr)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: email address is not valid", InvalidRegistrationErr)
	}
	return ValidatePasswordStrength(r.Password)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: must be at least 8 characters long", WeakPasswordErr)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("%w: must contain at least one uppercase letter", WeakPasswordErr)
	}
	if !hasLower {
		return fmt.Errorf("%w: must contain at least one lowercase letter", WeakPasswordErr)
	}
	if !hasNumber {
		return fmt.Errorf("%w: must contain at least one number", WeakPasswordErr)
	}

	return nil
}

// ValidateProvider accepts lower case provider keys such as "google"
func (v *Validator) ValidateProvider(provider string) error {
	if !providerPattern.MatchString(provider) {
		return fmt.Errorf("%w: %q", InvalidProviderErr, provider)
	}
	return nil
}

// ValidateReturnTo accepts a site-relative path or an absolute http(s) URL
func (v *Validator) ValidateReturnTo(returnTo string) error {
	if returnTo == "" {
		return nil
	}
	u, err := url.Parse(returnTo)
	if err != nil {
		return fmt.Errorf("%w: %v", InvalidReturnToErr, err)
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: scheme must be http or https", InvalidReturnToErr)
		}
		if u.Host == "" {
			return fmt.Errorf("%w: host is required", InvalidReturnToErr)
		}
		return nil
	}
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		return fmt.Errorf("%w: relative paths must start with a single '/'", InvalidReturnToErr)
	}
	return nil
}
