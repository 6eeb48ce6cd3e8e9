package application

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AdminCredentials are the configured organizer login.
type AdminCredentials struct {
	User         string
	PasswordHash string
}

// AuthService checks organizer credentials for the admin API.
type AuthService struct {
	credentials    AdminCredentials
	verifyPassword PasswordVerifier
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided credentials.
func NewAuthService(credentials AdminCredentials, verify PasswordVerifier) *AuthService {
	return NewAuthServiceWithLogger(credentials, verify, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials AdminCredentials, verify PasswordVerifier, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	return &AuthService{
		credentials:    credentials,
		verifyPassword: verify,
		logger:         defaultLogger(logger),
	}
}

// Authenticate reports ErrUnauthorized unless user and password match the
// configured admin login.
func (s *AuthService) Authenticate(ctx context.Context, user, password string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	user = strings.TrimSpace(user)
	logger := serviceLogger(ctx, s.logger, "AuthService", "Authenticate", "user", user)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "authentication succeeded")
	}()

	if s.credentials.User == "" || s.credentials.PasswordHash == "" {
		return fmt.Errorf("%w: admin login not configured", ErrUnauthorized)
	}
	if user == "" || password == "" {
		return ErrUnauthorized
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.credentials.User)) == 1
	passErr := s.verifyPassword(s.credentials.PasswordHash, password)
	if !userOK || passErr != nil {
		return ErrUnauthorized
	}
	return nil
}
