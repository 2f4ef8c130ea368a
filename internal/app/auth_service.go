// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"niblet/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", domain.ErrAuth)
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = fmt.Errorf("%w: session not found", domain.ErrAuth)
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = fmt.Errorf("%w: session expired", domain.ErrAuth)
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user not found", domain.ErrNotFound)
	// ErrUsersExist is returned by first-run setup once any account exists.
	ErrUsersExist = fmt.Errorf("%w: users already exist", domain.ErrConflict)
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = fmt.Errorf("%w: username already taken", domain.ErrConflict)
	// ErrResetTokenInvalid is returned for unknown or expired reset tokens.
	ErrResetTokenInvalid = fmt.Errorf("%w: invalid or expired reset token", domain.ErrValidation)
)

const (
	sessionTTL        = 30 * 24 * time.Hour
	resetTTL          = time.Hour
	minPasswordLength = 6
)

// AuthService handles authentication and session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	resets   domain.ResetTokenRepository
	now      func() time.Time
}

// NewAuthService creates a new authentication service. resets may be nil,
// which disables the forgot-password flow.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, resets domain.ResetTokenRepository) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		resets:   resets,
		now:      time.Now,
	}
}

// Register creates a regular account and logs it in.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, "", domain.Validationf("username is required")
	}
	if err := checkPassword(password); err != nil {
		return nil, "", err
	}
	if existing, err := s.users.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	user, err := s.users.Create(ctx, username, string(hash), domain.RoleUser)
	if err != nil {
		return nil, "", err
	}
	token, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, "", ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		return nil, "", ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// PurgeExpired drops expired sessions and reset tokens.
func (s *AuthService) PurgeExpired(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}

// ValidateSession checks that a session token is live and returns its user.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateInitialUser creates the first user, as an admin, if no users exist.
func (s *AuthService) CreateInitialUser(ctx context.Context, username, password string) (*domain.User, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsersExist
	}
	if strings.TrimSpace(username) == "" {
		return nil, domain.Validationf("username is required")
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, username, string(hash), domain.RoleAdmin)
}

// NeedsSetup reports whether no account exists yet.
func (s *AuthService) NeedsSetup(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// ValidateForwardAuth validates a request from a forward-auth proxy.
// It checks for the Remote-User header set by the proxy.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.User, error) {
	if remoteUser == "" {
		return nil, fmt.Errorf("%w: no remote user header", domain.ErrAuth)
	}
	return s.provision(ctx, remoteUser)
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, username string) (string, error) {
	user, err := s.provision(ctx, username)
	if err != nil {
		return "", err
	}
	return s.startSession(ctx, user.ID)
}

// UpdatePassword changes the password after checking the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return ErrUserNotFound
	}
	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
			return ErrInvalidCredentials
		}
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

// ForgotPassword issues a single-use reset token for username. Unknown
// users get an empty token and no error so callers cannot probe accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, username string) (string, error) {
	if s.resets == nil {
		return "", errors.New("password reset is not configured")
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil || user == nil {
		return "", nil
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	reset := domain.PasswordReset{Token: token, UserID: user.ID, ExpiresAt: s.now().Add(resetTTL)}
	if err := s.resets.CreateReset(ctx, reset); err != nil {
		return "", err
	}
	log.Printf("[auth] issued password reset for user %d", user.ID)
	return token, nil
}

// ResetPassword consumes a reset token and sets a new password, returning
// a fresh session.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if s.resets == nil {
		return "", errors.New("password reset is not configured")
	}
	if err := checkPassword(password); err != nil {
		return "", err
	}
	reset, err := s.resets.ConsumeReset(ctx, token)
	if err != nil {
		return "", err
	}
	if reset == nil || s.now().After(reset.ExpiresAt) {
		return "", ErrResetTokenInvalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdatePassword(ctx, reset.UserID, string(hash)); err != nil {
		return "", err
	}
	return s.startSession(ctx, reset.UserID)
}

// provision returns the named user, creating a password-less account for
// SSO logins on first sight.
func (s *AuthService) provision(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err == nil && user != nil {
		return user, nil
	}
	user, err = s.users.Create(ctx, username, "", domain.RoleUser)
	if err != nil {
		// Lost a race on the unique constraint.
		user, err = s.users.GetByUsername(ctx, username)
		if err != nil || user == nil {
			return nil, fmt.Errorf("provision %s: %w", username, ErrUserNotFound)
		}
	}
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, userID, token, s.now().Add(sessionTTL)); err != nil {
		return "", err
	}
	return token, nil
}

func checkPassword(p string) error {
	if len(p) < minPasswordLength {
		return domain.Validationf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
