// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mindtrack/internal/domain"
)

const (
	sessionTTL        = 24 * time.Hour
	minPasswordLength = 8
)

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// AuthService handles registration, login and session checks.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	profiles domain.ProfileRepository
	logger   *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, profiles domain.ProfileRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		profiles: profiles,
		logger:   logger,
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", domain.Invalid("email", "must be a valid email address")
	}
	return strings.ToLower(addr.Address), nil
}

// Register creates an account with an empty profile and logs it in.
func (s *AuthService) Register(ctx context.Context, email, password, userAgent, ip string) (string, *domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}
	if len(password) < minPasswordLength {
		return "", nil, domain.Invalid("password", "must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	user, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return "", nil, err
	}
	if err := s.provisionProfile(ctx, user); err != nil {
		return "", nil, err
	}

	token, err := s.newSession(ctx, user.ID, userAgent, ip)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return token, user, nil
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ip string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || user == nil || user.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.newSession(ctx, user.ID, userAgent, ip)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// ValidateSession checks if a session token is valid and matches the user agent.
func (s *AuthService) ValidateSession(ctx context.Context, token, userAgent string) (*domain.User, error) {
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.DeleteSession(ctx, token)
		return nil, ErrSessionExpired
	}

	if session.UserAgent != userAgent {
		_ = s.sessions.DeleteSession(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// ValidateForwardAuth resolves the Remote-User header set by a forward-auth
// proxy, provisioning the account on first sight.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.User, error) {
	if remoteUser == "" {
		return nil, errors.New("no remote user header")
	}
	return s.userForSSO(ctx, remoteUser)
}

// LoginWithUser creates a session for an already authenticated identity (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, email, userAgent, ip string) (string, error) {
	user, err := s.userForSSO(ctx, email)
	if err != nil {
		return "", err
	}
	return s.newSession(ctx, user.ID, userAgent, ip)
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) error {
	return s.sessions.DeleteExpiredSessions(ctx)
}

func (s *AuthService) userForSSO(ctx context.Context, identity string) (*domain.User, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	user, err := s.users.GetUserByEmail(ctx, identity)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	// SSO users have no password hash.
	user, err = s.users.CreateUser(ctx, identity, "")
	if err != nil {
		// Lost a race with a concurrent first login.
		if user, gerr := s.users.GetUserByEmail(ctx, identity); gerr == nil && user != nil {
			return user, nil
		}
		return nil, err
	}
	if err := s.provisionProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) provisionProfile(ctx context.Context, user *domain.User) error {
	if s.profiles == nil {
		return nil
	}
	unlock := profileLocks.Lock(profileLockKey(user.ID))
	defer unlock()

	existing, err := s.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if existing != nil {
		return nil
	}
	return s.profiles.CreateProfile(ctx, domain.Profile{
		UserID:       user.ID,
		Email:        user.Email,
		CurrentLevel: 1,
		Goals:        []string{},
		Badges:       []string{},
	})
}

func (s *AuthService) newSession(ctx context.Context, userID int64, userAgent, ip string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.CreateSession(ctx, userID, token, userAgent, ip, time.Now().Add(sessionTTL)); err != nil {
		return "", err
	}
	return token, nil
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
