// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAvatar is the avatar path assigned to new profiles. It is shared
// by every profile and is never removed from asset storage.
const DefaultAvatar = "images/default_user.jpg"

// User represents an account that can author posts, comment and vote.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanModerate reports whether the user may act on content owned by authorID.
func (u *User) CanModerate(authorID uuid.UUID) bool {
	if u == nil {
		return false
	}
	return u.IsStaff || u.ID == authorID
}

// Profile holds the public-facing part of a user account. Exactly one
// profile exists per user; its slug is derived from the username once.
type Profile struct {
	UserID uuid.UUID `json:"user_id"`
	Slug   string    `json:"slug"`
	Avatar string    `json:"avatar"`
	Bio    string    `json:"bio"`

	// Virtual field populated by store methods.
	User *User `json:"user,omitempty"`
}
