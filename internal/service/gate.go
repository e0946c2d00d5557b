package service

import (
	"context"
	"errors"
	"fmt"

	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/repository"
	"moonlit/gallery/internal/security"
)

// RoleGate turns a session token into a Principal and checks its role.
type RoleGate struct {
	secret   string
	users    UserStore
	sessions SessionStore
}

func NewRoleGate(secret string, users UserStore, sessions SessionStore) *RoleGate {
	return &RoleGate{secret: secret, users: users, sessions: sessions}
}

// Resolve validates the token against its stored session and returns the
// principal. Every failure is ErrUnauthorized.
func (g *RoleGate) Resolve(ctx context.Context, token string) (models.Principal, error) {
	claims, err := security.ParseAccessToken(token, g.secret)
	if err != nil {
		return models.Principal{}, ErrUnauthorized
	}

	session, err := g.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.Principal{}, ErrUnauthorized
		}
		return models.Principal{}, fmt.Errorf("%w: load session: %w", ErrInternal, err)
	}
	if session.UserID != claims.UserID || session.DeviceID != claims.DeviceID {
		return models.Principal{}, ErrUnauthorized
	}

	user, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Principal{}, ErrUnauthorized
		}
		return models.Principal{}, fmt.Errorf("%w: load user: %w", ErrInternal, err)
	}

	return models.Principal{
		UserID:    user.ID,
		SessionID: session.ID,
		DeviceID:  session.DeviceID,
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}

// Require resolves the token and fails with ErrForbidden unless the
// principal holds one of roles. No roles means any authenticated user.
func (g *RoleGate) Require(ctx context.Context, token string, roles ...models.UserRole) (models.Principal, error) {
	principal, err := g.Resolve(ctx, token)
	if err != nil {
		return models.Principal{}, err
	}
	if len(roles) == 0 {
		return principal, nil
	}
	for _, role := range roles {
		if principal.Role == role {
			return principal, nil
		}
	}
	return principal, ErrForbidden
}

// Touch records activity on the principal's session. Failures are not
// interesting to the caller.
func (g *RoleGate) Touch(ctx context.Context, principal models.Principal, ip string, userAgent string) {
	_ = g.sessions.Touch(ctx, principal.SessionID, ip, userAgent)
}
