package models

import "time"

type UserRole string

const (
	UserRolePhotographer UserRole = "photographer"
	UserRoleClient       UserRole = "client"
	UserRoleUser         UserRole = "user"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRolePhotographer, UserRoleClient, UserRoleUser:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Session struct {
	ID               string
	UserID           string
	DeviceID         string
	DeviceName       string
	RefreshTokenHash []byte
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}

// Principal is the identity resolved from a session token.
type Principal struct {
	UserID    string
	SessionID string
	DeviceID  string
	Email     string
	Role      UserRole
}
