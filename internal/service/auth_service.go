package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"moonlit/gallery/internal/config"
	"moonlit/gallery/internal/ids"
	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/repository"
	"moonlit/gallery/internal/security"
)

const minPasswordLength = 8

type AuthService struct {
	users    UserStore
	sessions SessionStore
	cfg      config.SecurityConfig
	log      zerolog.Logger

	hash   func(password string) ([]byte, error)
	verify func(password string, hash []byte) (bool, error)
}

func NewAuthService(users UserStore, sessions SessionStore, cfg config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		hash:     security.HashPassword,
		verify:   security.VerifyPassword,
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup creates a user with the default role. The returned user still
// carries the hash; callers must not serialize it.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return models.User{}, fmt.Errorf("%w: missing required fields", ErrBadRequest)
	}
	if len(input.Password) < minPasswordLength {
		return models.User{}, ErrWeakPassword
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return models.User{}, ErrAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("%w: lookup user: %w", ErrInternal, err)
	}

	return s.createUser(ctx, input.Name, input.Email, input.Password, models.UserRoleUser)
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, role models.UserRole) (models.User, error) {
	passwordHash, err := s.hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: hash password: %w", ErrInternal, err)
	}

	user, err := s.users.Create(ctx, models.User{
		ID:           ids.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		// lost a race with a concurrent signup for the same email
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("%w: create user: %w", ErrInternal, err)
	}
	return user, nil
}

// Authenticate fails with ErrInvalidCredentials for both an unknown email
// and a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, email string, password string) (models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("%w: lookup user: %w", ErrInternal, err)
	}

	ok, err := s.verify(password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return models.User{}, ErrInvalidCredentials
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

type LoginInput struct {
	Email      string
	Password   string
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         models.User
	DeviceID     string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	deviceID := input.DeviceID
	if deviceID == "" {
		deviceID = ids.New()
	}
	deviceName := input.DeviceName
	if deviceName == "" {
		deviceName = "Unknown Device"
	}

	session := models.Session{
		ID:         ids.New(),
		UserID:     user.ID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	}
	result, err := s.issue(ctx, user, session)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("enforce session limit failed")
	}
	return result, nil
}

// issue rotates the refresh token on session, stores it and signs a fresh
// access token.
func (s *AuthService) issue(ctx context.Context, user models.User, session models.Session) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	session.RefreshTokenHash = refreshHash
	session.ExpiresAt = time.Now().Add(s.cfg.JWTRefreshTTL)

	if err := s.sessions.Save(ctx, session); err != nil {
		return AuthResult{}, fmt.Errorf("%w: save session: %w", ErrInternal, err)
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.JWTAccessSecret,
		user.ID,
		session.ID,
		session.DeviceID,
		string(user.Role),
		s.cfg.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.cfg.JWTAccessTTL),
		User:         user,
		DeviceID:     session.DeviceID,
	}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID string) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.MaxSessions {
		return nil
	}
	return s.sessions.DeleteOldest(ctx, userID, s.cfg.MaxSessions)
}

type RefreshInput struct {
	UserID       string
	RefreshToken string
	DeviceID     string
}

func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (AuthResult, error) {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	session, err := s.sessions.FindByRefreshHash(ctx, input.UserID, security.HashRefreshToken(input.RefreshToken))
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if session.DeviceID != input.DeviceID {
		return AuthResult{}, ErrInvalidCredentials
	}
	if session.ExpiresAt.Before(time.Now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issue(ctx, user, session)
}

func (s *AuthService) Logout(ctx context.Context, principal models.Principal) error {
	if err := s.sessions.DeleteByDevice(ctx, principal.UserID, principal.DeviceID); err != nil {
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return nil
}

func (s *AuthService) Sessions(ctx context.Context, principal models.Principal) ([]models.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return sessions, nil
}

// RevokeDevice ends the principal's session on another device.
func (s *AuthService) RevokeDevice(ctx context.Context, principal models.Principal, deviceID string) error {
	if deviceID == "" || deviceID == principal.DeviceID {
		return fmt.Errorf("%w: cannot revoke the current device", ErrBadRequest)
	}
	if err := s.sessions.DeleteByDevice(ctx, principal.UserID, deviceID); err != nil {
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return nil
}

// PurgeExpiredSessions is run by the scheduler.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

// SeedUsers creates the configured accounts that do not exist yet. Seed
// passwords skip the signup length policy.
func (s *AuthService) SeedUsers(ctx context.Context, seeds []config.SeedUser) error {
	for _, seed := range seeds {
		email := normalizeEmail(seed.Email)
		role := models.UserRole(seed.Role)
		if email == "" || seed.Password == "" || !role.Valid() {
			return fmt.Errorf("invalid seed user %q", seed.Email)
		}

		if _, err := s.users.FindByEmail(ctx, email); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return err
		}

		user, err := s.createUser(ctx, seed.Name, email, seed.Password, role)
		if err != nil && !errors.Is(err, ErrAlreadyExists) {
			return err
		}
		s.log.Info().Str("email", email).Str("role", string(role)).Str("user_id", user.ID).Msg("seeded user")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
