package models

import (
	"time"

	"github.com/BradenHooton/bastion/internal/lockout"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                string
	Email             string
	Name              string
	PasswordHash      string
	Active            bool
	Role              string
	Phone             *string
	Address           *string
	ProfilePictureURL *string
	CoverPictureURL   *string
	LastLogin         *time.Time
	LoginAttempts     int
	LockedUntil       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Lockout returns the user's lockout fields as a lockout.State
func (u *User) Lockout() lockout.State {
	return lockout.State{
		LoginAttempts: u.LoginAttempts,
		LockedUntil:   u.LockedUntil,
	}
}

// SetLockout copies s back onto the user
func (u *User) SetLockout(s lockout.State) {
	u.LoginAttempts = s.LoginAttempts
	u.LockedUntil = s.LockedUntil
}
