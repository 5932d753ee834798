package model

import (
	"strings"
	"time"
)

// Role is fixed at account creation.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts a case-insensitive role name.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleGuest:
		return RoleGuest, true
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// CanContribute reports whether the role may submit questions, answers and votes.
func (r Role) CanContribute() bool { return r == RoleUser || r == RoleAdmin }

type User struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Email        string    `json:"email" yaml:"email"`
	PasswordHash string    `json:"-" yaml:"passwordHash"`
	Role         Role      `json:"role" yaml:"role"`
	CreatedAt    time.Time `json:"created_at" yaml:"createdAt"`
}

// Actor is the identity an operation runs as. It is resolved per request and passed
// explicitly; an empty ID means an anonymous guest.
type Actor struct {
	ID   string
	Role Role
}

// Anonymous returns the guest actor used for unauthenticated callers.
func Anonymous() Actor {
	return Actor{Role: RoleGuest}
}

func (a Actor) IsAuthenticated() bool { return a.ID != "" }

// Owns reports whether the actor is the given user.
func (a Actor) Owns(userID string) bool { return a.ID != "" && a.ID == userID }
