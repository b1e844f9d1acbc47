package models

import (
	"time"

	"foodbridge/pkg/domain"
)

// User is a registered identity.
//
// Invariants:
//   - Email is unique across both roles
//   - Role is donor or ngo and never changes
//   - PasswordHash is a bcrypt verifier, never the cleartext password
type User struct {
	ID           domain.UserID
	Name         string
	Email        string
	PasswordHash string
	Role         domain.Role
	CreatedAt    time.Time
}

// Actor is the identity this user presents once authenticated.
func (u *User) Actor() domain.Actor {
	return domain.Actor{ID: u.ID, Name: u.Name, Role: u.Role}
}

// Session is the result of a successful register or login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}
