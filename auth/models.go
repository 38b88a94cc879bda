package auth

import (
	"strings"
	"time"
)

type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// User is the domain representation of an account.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Name         string
	Phone        string
	City         string
	Avatar       string
	Verified     bool
	LastLogin    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileComplete reports whether the account carries the three contact
// fields required before a provider may operate a dashboard.
func (u User) ProfileComplete() bool {
	return strings.TrimSpace(u.Name) != "" &&
		strings.TrimSpace(u.Phone) != "" &&
		strings.TrimSpace(u.City) != ""
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfilePatch carries the mutable account fields for PUT /users/me.
// Nil pointers leave the stored value untouched.
type ProfilePatch struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	City   *string `json:"city"`
	Avatar *string `json:"avatar"`
}
