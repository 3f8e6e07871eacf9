package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a user's permission level
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User is a shop account allowed to use the billing API
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser creates a user with a normalised email. The caller sets PasswordHash.
func NewUser(name, email string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate validates the user data
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}

	if u.Name == "" {
		return fmt.Errorf("user name is required")
	}

	if !IsValidEmail(u.Email) {
		return fmt.Errorf("invalid email format: %s", u.Email)
	}

	if u.PasswordHash == "" {
		return fmt.Errorf("password hash is required")
	}

	if !u.Role.IsValid() {
		return fmt.Errorf("invalid role: %s", u.Role)
	}

	return nil
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
