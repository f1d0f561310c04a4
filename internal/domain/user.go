// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and the session token used for
// bearer authentication. The raw token is given to the client once at login;
// only its SHA-256 hash is stored.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SessionDuration is how long an issued bearer token remains valid.
	SessionDuration = 7 * 24 * time.Hour

	// SessionTokenBytes is the number of random bytes in a session token.
	// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
	SessionTokenBytes = 32
)

// User represents a registered user.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string // Never expose this in API responses
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session backing a bearer token.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the raw token (64 char hex)
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
