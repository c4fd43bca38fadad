package model

import (
	"net/mail"
	"strings"
	"time"
)

// User is a registered member of the exchange.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Points       int       `json:"points"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary returns the public view of the user.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name}
}

// UserSummary is the denormalized user view embedded in items and swaps.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// StartingPoints is the balance granted on registration.
const StartingPoints = 100

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[minimum] > 0 && levels[role] >= levels[minimum]
}

// ParseRole validates a role string.
func ParseRole(s string) (string, error) {
	if s == RoleAdmin || s == RoleUser {
		return s, nil
	}
	return "", Invalid("role", "invalid role")
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return Invalid("password", "password must be at least 8 characters")
	}
	return nil
}

// NormalizeEmail trims and lowercases an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", Invalid("email", "valid email required")
	}
	return email, nil
}
